package main

import "github.com/pkg/errors"

// reg is a general-purpose x86-64 register, identified by its numeric
// encoding (0-15) independent of operand width. Width is selected at
// encode time by the instruction's operand size.
type reg int

const (
	RAX reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// num returns the register's 4-bit encoding (0-15).
func (r reg) num() int { return int(r) }

// ext reports whether r is one of r8-r15, whose encoding needs a REX
// extension bit (REX.B/REX.R/REX.X). It is false for SPL/BPL/SIL/DIL,
// which need a REX prefix with no extension bit; encoders check
// num() >= 4 on byte operands for that case.
func (r reg) ext() bool { return r >= R8 }

var reg64Names = map[reg]string{
	RAX: "rax", RCX: "rcx", RDX: "rdx", RBX: "rbx",
	RSP: "rsp", RBP: "rbp", RSI: "rsi", RDI: "rdi",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11",
	R12: "r12", R13: "r13", R14: "r14", R15: "r15",
}

var reg32Names = map[reg]string{
	RAX: "eax", RCX: "ecx", RDX: "edx", RBX: "ebx",
	RSP: "esp", RBP: "ebp", RSI: "esi", RDI: "edi",
	R8: "r8d", R9: "r9d", R10: "r10d", R11: "r11d",
	R12: "r12d", R13: "r13d", R14: "r14d", R15: "r15d",
}

var reg16Names = map[reg]string{
	RAX: "ax", RCX: "cx", RDX: "dx", RBX: "bx",
	RSP: "sp", RBP: "bp", RSI: "si", RDI: "di",
	R8: "r8w", R9: "r9w", R10: "r10w", R11: "r11w",
	R12: "r12w", R13: "r13w", R14: "r14w", R15: "r15w",
}

var reg8Names = map[reg]string{
	RAX: "al", RCX: "cl", RDX: "dl", RBX: "bl",
	RSP: "spl", RBP: "bpl", RSI: "sil", RDI: "dil",
	R8: "r8b", R9: "r9b", R10: "r10b", R11: "r11b",
	R12: "r12b", R13: "r13b", R14: "r14b", R15: "r15b",
}

// nameForSize renders r's assembly name at the given operand width.
func (r reg) nameForSize(size int) string {
	switch size {
	case 1:
		return reg8Names[r]
	case 2:
		return reg16Names[r]
	case 4:
		return reg32Names[r]
	default:
		return reg64Names[r]
	}
}

var nameToReg = func() map[string]reg {
	m := make(map[string]reg)
	for _, tbl := range []map[reg]string{reg64Names, reg32Names, reg16Names, reg8Names} {
		for r, n := range tbl {
			m[n] = r
		}
	}
	return m
}()

// parseReg resolves a bare register mnemonic (no leading %) to its reg
// value and the operand width implied by the name used.
func parseReg(name string) (reg, int, error) {
	r, ok := nameToReg[name]
	if !ok {
		return 0, 0, errors.Errorf("unknown register %q", name)
	}
	switch {
	case reg8Names[r] == name:
		return r, 1, nil
	case reg16Names[r] == name:
		return r, 2, nil
	case reg32Names[r] == name:
		return r, 4, nil
	default:
		return r, 8, nil
	}
}

// sysVArgRegs is the fixed order axis uses for the first six integer
// arguments, per the System V AMD64 subset spec.md §3 commits to.
var sysVArgRegs = []reg{RDI, RSI, RDX, RCX, R8, R9}

// calleeSavedPool is the small stack of caller-allocatable temporaries
// the register allocator hands out, mirroring "allocator as value": a
// slice acting as a stack of free names plus a spill signal, never a
// graph-coloring structure. rbx/r12-r15 are callee-saved in the System V
// convention, so codegen's prologue/epilogue save/restore them once.
var calleeSavedPool = []reg{RBX, R12, R13, R14, R15}
