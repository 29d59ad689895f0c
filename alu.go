package main

import "github.com/pkg/errors"

var aluOpcodes = map[string]int{
	"add": 0, "or": 1, "and": 4, "sub": 5, "xor": 6, "cmp": 7,
}

// encodeALU handles the six two-operand arithmetic/logic/compare
// mnemonics, register-register and register-immediate forms, matching
// original_source/assembler.py's assemble_alu opcode table.
func encodeALU(mnem string, ops []string) (encResult, error) {
	opExt, ok := aluOpcodes[mnem]
	if !ok {
		return encResult{}, errors.Errorf("unknown ALU mnemonic %q", mnem)
	}
	if len(ops) != 2 {
		return encResult{}, errors.Errorf("%s requires exactly two operands", mnem)
	}
	dst, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	src, err := parseOperand(ops[1])
	if err != nil {
		return encResult{}, err
	}

	if dst.kind == opReg && src.kind == opReg {
		if dst.size != src.size {
			return encResult{}, errors.Errorf("%s: operand size mismatch", mnem)
		}
		mrm := modrm(3, src.r.num()%8, dst.r.num()%8)
		switch dst.size {
		case 4:
			b := []byte{}
			if dst.r.ext() || src.r.ext() {
				b = append(b, buildREX(0, boolBit(src.r.ext()), 0, boolBit(dst.r.ext())))
			}
			b = append(b, byte(0x01+opExt*8), mrm)
			return noReloc(b), nil
		case 8:
			rex := buildREX(1, boolBit(src.r.ext()), 0, boolBit(dst.r.ext()))
			return noReloc([]byte{rex, byte(0x01 + opExt*8), mrm}), nil
		default:
			return encResult{}, errors.Errorf("%s: unsupported width %d", mnem, dst.size)
		}
	}

	if dst.kind == opReg && src.kind == opImm {
		imm := src.imm
		switch dst.size {
		case 4:
			if imm >= -128 && imm <= 127 {
				b := []byte{}
				if dst.r.ext() {
					b = append(b, buildREX(0, 0, 0, 1))
				}
				b = append(b, 0x83, modrm(3, opExt, dst.r.num()%8), byte(imm))
				return noReloc(b), nil
			}
			if !fitsSigned(imm, 32) {
				return encResult{}, errors.Errorf("%s: immediate out of range", mnem)
			}
			b := []byte{}
			if dst.r.ext() {
				b = append(b, buildREX(0, 0, 0, 1))
			}
			b = append(b, 0x81, modrm(3, opExt, dst.r.num()%8))
			b = append(b, le32(int32(imm))...)
			return noReloc(b), nil
		case 8:
			rex := buildREX(1, 0, 0, boolBit(dst.r.ext()))
			if imm >= -128 && imm <= 127 {
				return noReloc([]byte{rex, 0x83, modrm(3, opExt, dst.r.num()%8), byte(imm)}), nil
			}
			if imm < -2147483648 || imm > 2147483647 {
				return encResult{}, errors.Errorf("%s: immediate out of range for 64-bit op", mnem)
			}
			b := []byte{rex, 0x81, modrm(3, opExt, dst.r.num()%8)}
			b = append(b, le32(int32(imm))...)
			return noReloc(b), nil
		case 1:
			if !fitsSigned(imm, 8) {
				return encResult{}, errors.Errorf("%s: immediate out of range for 8-bit op", mnem)
			}
			b := []byte{}
			if dst.r.ext() || dst.r.num() >= 4 {
				b = append(b, buildREX(0, 0, 0, boolBit(dst.r.ext())))
			}
			b = append(b, 0x80, modrm(3, opExt, dst.r.num()%8), byte(imm))
			return noReloc(b), nil
		}
	}

	return encResult{}, errors.Errorf("no encoding for %s %s, %s", mnem, ops[0], ops[1])
}

// encodeTest handles "test reg, reg" (85 /r) used by codegen to check
// boolean/zero conditions ahead of a conditional jump.
func encodeTest(ops []string) (encResult, error) {
	if len(ops) != 2 {
		return encResult{}, errors.New("test requires exactly two operands")
	}
	a, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	b2, err := parseOperand(ops[1])
	if err != nil {
		return encResult{}, err
	}
	if a.kind != opReg || b2.kind != opReg || a.size != b2.size {
		return encResult{}, errors.New("test requires two same-width registers")
	}
	mrm := modrm(3, b2.r.num()%8, a.r.num()%8)
	switch a.size {
	case 4:
		b := []byte{}
		if a.r.ext() || b2.r.ext() {
			b = append(b, buildREX(0, boolBit(b2.r.ext()), 0, boolBit(a.r.ext())))
		}
		b = append(b, 0x85, mrm)
		return noReloc(b), nil
	case 8:
		rex := buildREX(1, boolBit(b2.r.ext()), 0, boolBit(a.r.ext()))
		return noReloc([]byte{rex, 0x85, mrm}), nil
	case 1:
		b := []byte{}
		if a.r.ext() || b2.r.ext() || a.r.num() >= 4 || b2.r.num() >= 4 {
			b = append(b, buildREX(0, boolBit(b2.r.ext()), 0, boolBit(a.r.ext())))
		}
		b = append(b, 0x84, mrm)
		return noReloc(b), nil
	}
	return encResult{}, errors.New("test: unsupported width")
}
