package main

import "github.com/pkg/errors"

var jccOpcodes = map[string]byte{
	"je": 0x84, "jz": 0x84, "jne": 0x85, "jnz": 0x85,
	"jl": 0x8C, "jnge": 0x8C, "jle": 0x8E, "jng": 0x8E,
	"jg": 0x8F, "jnle": 0x8F, "jge": 0x8D, "jnl": 0x8D,
	"ja": 0x87, "jnbe": 0x87, "jae": 0x83, "jnb": 0x83,
	"jb": 0x82, "jnae": 0x82, "jbe": 0x86, "jna": 0x86,
	"js": 0x88, "jns": 0x89,
}

// jumpForm is the relaxation state of one branch instruction: "short"
// (rel8) or "near" (rel32/rel32-with-0F-prefix), keyed in assemble.go by
// a stable per-instruction ordinal, not by address.
type jumpForm int

const (
	formNear jumpForm = iota
	formShort
)

// encodeJmpCallAt encodes an unconditional jmp or a call against a
// resolved target address, or emits a zero-filled placeholder when the
// label isn't known yet (first relaxation pass), following
// original_source/assembler.py's assemble_jmp_call.
func encodeJmpCallAt(mnem string, target string, curAddr int, labels map[string]int, form jumpForm, resolved bool) (encResult, error) {
	if mnem == "call" {
		if !resolved {
			return noReloc([]byte{0xE8, 0, 0, 0, 0}), nil
		}
		dst, ok := labels[target]
		if !ok {
			return encResult{}, errors.Errorf("call: undefined label %q", target)
		}
		offset := int32(dst - (curAddr + 5))
		b := append([]byte{0xE8}, le32(offset)...)
		return noReloc(b), nil
	}
	// jmp
	if !resolved {
		return noReloc([]byte{0xE9, 0, 0, 0, 0}), nil
	}
	dst, ok := labels[target]
	if !ok {
		return encResult{}, errors.Errorf("jmp: undefined label %q", target)
	}
	if form == formShort {
		offset := dst - (curAddr + 2)
		if offset < -128 || offset > 127 {
			return encResult{}, errors.New("jmp: short form does not fit")
		}
		return noReloc([]byte{0xEB, byte(int8(offset))}), nil
	}
	offset := int32(dst - (curAddr + 5))
	b := append([]byte{0xE9}, le32(offset)...)
	return noReloc(b), nil
}

// jmpSize returns the byte length of a jmp/call instruction in the given
// form, used by assemble.go to re-measure addresses between relaxation
// passes without actually resolving labels.
func jmpSize(mnem string, form jumpForm) int {
	if mnem == "call" {
		return 5
	}
	if form == formShort {
		return 2
	}
	return 5
}

func jccSize(form jumpForm) int {
	if form == formShort {
		return 2
	}
	return 6
}

// encodeJccAt encodes one conditional jump, mirroring
// original_source/assembler.py's assemble_conditional_jmp, including its
// fallback from short to near when the short-form displacement overflows.
func encodeJccAt(mnem string, target string, curAddr int, labels map[string]int, form jumpForm, resolved bool) (encResult, error) {
	opcode, ok := jccOpcodes[mnem]
	if !ok {
		return encResult{}, errors.Errorf("unknown conditional jump %q", mnem)
	}
	if !resolved {
		return noReloc([]byte{0x0F, opcode, 0, 0, 0, 0}), nil
	}
	dst, ok := labels[target]
	if !ok {
		return encResult{}, errors.Errorf("%s: undefined label %q", mnem, target)
	}
	if form == formShort {
		offset := dst - (curAddr + 2)
		if offset >= -128 && offset <= 127 {
			return noReloc([]byte{opcode - 0x10, byte(int8(offset))}), nil
		}
	}
	offset := int32(dst - (curAddr + 6))
	b := append([]byte{0x0F, opcode}, le32(offset)...)
	return noReloc(b), nil
}
