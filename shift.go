package main

import "github.com/pkg/errors"

var shiftOpExt = map[string]int{"shl": 4, "sal": 4, "shr": 5, "sar": 7}

// encodeShift handles "shl/shr/sal/sar reg, cl" and "... reg, imm8",
// extending original_source/assembler.py's assemble_shift (32-bit only
// there) to 64-bit registers via REX.W. 8- and 16-bit destinations get
// no byte opcode or 0x66 prefix, so they encode as the 32-bit shift.
func encodeShift(mnem string, ops []string) (encResult, error) {
	ext, ok := shiftOpExt[mnem]
	if !ok {
		return encResult{}, errors.Errorf("unknown shift mnemonic %q", mnem)
	}
	if len(ops) != 2 {
		return encResult{}, errors.Errorf("%s requires exactly two operands", mnem)
	}
	dst, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	if dst.kind != opReg {
		return encResult{}, errors.Errorf("%s requires a register destination", mnem)
	}
	count, err := parseOperand(ops[1])
	if err != nil {
		return encResult{}, err
	}

	var rexW int
	if dst.size == 8 {
		rexW = 1
	}
	needREX := rexW == 1 || dst.r.ext() || dst.r.num() >= 4

	if count.kind == opReg && count.r == RCX && count.size == 1 {
		b := []byte{}
		if needREX {
			b = append(b, buildREX(rexW, 0, 0, boolBit(dst.r.ext())))
		}
		b = append(b, 0xD3, modrm(3, ext, dst.r.num()%8))
		return noReloc(b), nil
	}
	if count.kind != opImm {
		return encResult{}, errors.Errorf("%s: count must be cl or an immediate", mnem)
	}
	if count.imm < 0 || count.imm > 255 {
		return encResult{}, errors.Errorf("%s: shift count out of range", mnem)
	}
	if count.imm == 1 {
		b := []byte{}
		if needREX {
			b = append(b, buildREX(rexW, 0, 0, boolBit(dst.r.ext())))
		}
		b = append(b, 0xD1, modrm(3, ext, dst.r.num()%8))
		return noReloc(b), nil
	}
	b := []byte{}
	if needREX {
		b = append(b, buildREX(rexW, 0, 0, boolBit(dst.r.ext())))
	}
	b = append(b, 0xC1, modrm(3, ext, dst.r.num()%8), byte(count.imm))
	return noReloc(b), nil
}
