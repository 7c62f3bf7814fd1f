package hash

import (
	"encoding/binary"
	"fmt"

	"github.com/chazu/fuzzyvm/pkg/sexp"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a parsed program.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian int64 (8B)
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Lists: TagList + uint32 element count, elements inline
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of program. The
// top level is encoded as a list. Source layout and comments are not part
// of the tree, so they do not affect the result.
func Serialize(program *sexp.Cons) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.serializeList(program)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) serializeList(l *sexp.Cons) {
	s.writeByte(TagList)
	s.writeUint32(uint32(l.Len()))
	for ; l != nil; l = l.Cdr {
		s.serializeAtom(l.Car)
	}
}

func (s *serializer) serializeAtom(a sexp.Atom) {
	switch a.Kind {
	case sexp.KindSymbol:
		s.writeByte(TagSymbol)
		s.writeString(a.Sym)

	case sexp.KindInt:
		s.writeByte(TagInt)
		s.writeInt64(a.Int)

	case sexp.KindHandle:
		s.writeByte(TagHandle)
		s.writeInt64(a.Int)

	case sexp.KindList:
		s.serializeList(a.List)

	default:
		panic(fmt.Sprintf("hash: unknown atom kind %s", a.Kind))
	}
}
