package main

import "github.com/pkg/errors"

var singleOpcodes = map[string][]byte{
	"ret": {0xC3}, "nop": {0x90}, "int3": {0xCC},
	"syscall": {0x0F, 0x05}, "leave": {0xC9},
	"pushf": {0x9C}, "popf": {0x9D},
	"cdq": {0x99}, "cqo": {0x48, 0x99},
}

// encodeSingle handles the fixed zero-operand mnemonics, straight out of
// original_source/assembler.py's assemble_single table.
func encodeSingle(mnem string) (encResult, error) {
	b, ok := singleOpcodes[mnem]
	if !ok {
		return encResult{}, errors.Errorf("unknown zero-operand mnemonic %q", mnem)
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return noReloc(cp), nil
}
