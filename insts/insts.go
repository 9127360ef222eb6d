// Package insts provides ARM7TDMI instruction definitions and decoding.
//
// Both instruction sets decode into the same Instruction representation.
// THUMB halfwords are expanded to the ARM operation they are defined in
// terms of, so a single executor serves both pipelines. The THUMB format
// number is kept in Instruction.ThumbFormat for introspection.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xE3A00001) // MOV R0, #1
//	fmt.Printf("Op: %v, Rd: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Imm)
//
//	thumb := decoder.DecodeThumb(0x2001) // MOVS R0, #1
package insts
