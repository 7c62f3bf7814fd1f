package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the program hashing format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones
// invalidates every cached chunk.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Atom tags. Each tag uniquely identifies an atom kind in the serialized
// byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	TagSymbol byte = 0x01
	TagInt    byte = 0x02
	TagHandle byte = 0x03
	TagList   byte = 0x04

	// Reserved 0xFE-0xFF
)
