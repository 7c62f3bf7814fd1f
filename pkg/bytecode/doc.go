// Package bytecode defines the instruction set of the fuzzy controller
// machine and its encoded form.
//
// A lowered rule program is a flat list of Instructions. Lowering produces
// named instructions that refer to inputs, outputs and levels by name;
// symbol resolution rewrites them into resolved instructions carrying
// integer operands. Only resolved instructions can be encoded.
//
// # Instruction set
//
//	pop                        1 cell   drop TOS
//	min / max                  1 cell   pop two, push min / max
//	get-input-by-index i       2 cells  push input register i
//	call-function-by-ref h     2 cells  replace TOS with membership fn h
//	feed-defuzzer-fast o b     3 cells  feed (b, TOS) to defuzzer o, no pop
//
// # Chunk
//
// A Chunk holds the encoded cells, the input and output names by index, the
// membership function refs by handle and the maximum stack depth, which is
// computed statically by Verify from the opcode stack effects. The machine
// allocates exactly MaxStack slots. Chunks travel as canonical CBOR.
package bytecode
