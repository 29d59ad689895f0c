package main

import "github.com/pkg/errors"

// encodeMov handles register-register, register-immediate, and
// register-memory mov forms plus byte-immediate stores, following the
// same opcode choices as original_source/assembler.py's assemble_mov
// (0x89/0x8B reg-mem, 0xB8+r/0xC7 immediate loads, 0x88 byte store,
// 0xC6 byte-immediate store).
func encodeMov(ops []string) (encResult, error) {
	if len(ops) != 2 {
		return encResult{}, errors.New("mov requires exactly two operands")
	}
	dst, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	src, err := parseOperand(ops[1])
	if err != nil {
		return encResult{}, err
	}

	switch {
	case dst.kind == opReg && src.kind == opReg && dst.size == src.size:
		b := []byte{}
		if dst.size == 2 {
			b = append(b, 0x66)
		}
		if dst.size == 8 || dst.r.ext() || src.r.ext() || (dst.size == 1 && (dst.r.num() >= 4 || src.r.num() >= 4)) {
			b = append(b, buildREX(boolBit(dst.size == 8), boolBit(src.r.ext()), 0, boolBit(dst.r.ext())))
		}
		op := byte(0x89)
		if dst.size == 1 {
			op = 0x88
		}
		return noReloc(append(b, op, modrm(3, src.r.num()%8, dst.r.num()%8))), nil
	case dst.kind == opMem && src.kind == opImm && dst.size == 1 && fitsSigned(src.imm, 8):
		mb, rest, _, rexB := encodeMemForm(dst.mem, 0)
		b := []byte{}
		if rexB == 1 {
			b = append(b, buildREX(0, 0, 0, 1))
		}
		b = append(append(b, 0xC6, mb), rest...)
		return noReloc(append(b, byte(src.imm))), nil
	case dst.kind == opReg && src.kind == opMem:
		return movLoad(dst, src)
	case dst.kind == opMem && src.kind == opReg:
		return movStore(dst, src)
	case dst.kind == opReg && src.kind == opImm:
		return movRegImm(dst, src)
	default:
		return encResult{}, errors.Errorf("no encoding for mov %s, %s", ops[0], ops[1])
	}
}

func movLoad(dst, src operand) (encResult, error) {
	rf := dst.r.num() % 8
	mb, rest, _, rexB := encodeMemForm(src.mem, rf)
	switch dst.size {
	case 4:
		b := []byte{}
		if dst.r.ext() || rexB == 1 {
			b = append(b, buildREX(0, boolBit(dst.r.ext()), 0, rexB))
		}
		b = append(b, 0x8B, mb)
		b = append(b, rest...)
		return noReloc(b), nil
	case 8:
		rex := buildREX(1, boolBit(dst.r.ext()), 0, rexB)
		b := []byte{rex, 0x8B, mb}
		b = append(b, rest...)
		return noReloc(b), nil
	case 1:
		b := []byte{}
		if dst.r.ext() || rexB == 1 || dst.r.num() >= 4 {
			b = append(b, buildREX(0, boolBit(dst.r.ext()), 0, rexB))
		}
		b = append(b, 0x8A, mb)
		b = append(b, rest...)
		return noReloc(b), nil
	case 2:
		b := []byte{0x66}
		if dst.r.ext() || rexB == 1 {
			b = append(b, buildREX(0, boolBit(dst.r.ext()), 0, rexB))
		}
		b = append(b, 0x8B, mb)
		b = append(b, rest...)
		return noReloc(b), nil
	}
	return encResult{}, errors.New("unsupported mov load width")
}

func movStore(dst, src operand) (encResult, error) {
	rf := src.r.num() % 8
	mb, rest, _, rexB := encodeMemForm(dst.mem, rf)
	switch dst.size {
	case 4:
		b := []byte{}
		if src.r.ext() || rexB == 1 {
			b = append(b, buildREX(0, boolBit(src.r.ext()), 0, rexB))
		}
		b = append(b, 0x89, mb)
		b = append(b, rest...)
		return noReloc(b), nil
	case 8:
		rex := buildREX(1, boolBit(src.r.ext()), 0, rexB)
		b := []byte{rex, 0x89, mb}
		b = append(b, rest...)
		return noReloc(b), nil
	case 1:
		b := []byte{}
		if src.r.ext() || rexB == 1 || src.r.num() >= 4 {
			b = append(b, buildREX(0, boolBit(src.r.ext()), 0, rexB))
		}
		b = append(b, 0x88, mb)
		b = append(b, rest...)
		return noReloc(b), nil
	case 2:
		b := []byte{0x66}
		if src.r.ext() || rexB == 1 {
			b = append(b, buildREX(0, boolBit(src.r.ext()), 0, rexB))
		}
		b = append(b, 0x89, mb)
		b = append(b, rest...)
		return noReloc(b), nil
	}
	return encResult{}, errors.New("unsupported mov store width")
}

func movRegImm(dst, src operand) (encResult, error) {
	switch dst.size {
	case 4:
		if !fitsSigned(src.imm, 32) {
			return encResult{}, errors.New("immediate out of range for 32-bit mov")
		}
		b := []byte{}
		if dst.r.ext() {
			b = append(b, buildREX(0, 0, 0, 1))
		}
		b = append(b, 0xB8+byte(dst.r.num()%8))
		b = append(b, le32(int32(src.imm))...)
		return noReloc(b), nil
	case 8:
		rex := buildREX(1, 0, 0, boolBit(dst.r.ext()))
		b := []byte{rex, 0xB8 + byte(dst.r.num()%8)}
		b = append(b, le64(src.imm)...)
		return noReloc(b), nil
	case 1:
		b := []byte{}
		if dst.r.ext() || dst.r.num() >= 4 {
			b = append(b, buildREX(0, 0, 0, boolBit(dst.r.ext())))
		}
		b = append(b, 0xC6, modrm(3, 0, dst.r.num()%8), byte(src.imm))
		return noReloc(b), nil
	}
	return encResult{}, errors.New("unsupported mov-immediate width")
}

// encodeMovabsAt handles movabs r64, imm64 / movabs r64, @label. Label
// forms produce a pending relocation at offset 2 into the instruction
// (REX + opcode precede the 8-byte immediate), exactly as
// original_source/assembler.py's assemble_movabs records it.
func encodeMovabsAt(ops []string) (encResult, error) {
	if len(ops) != 2 {
		return encResult{}, errors.New("movabs requires exactly two operands")
	}
	dst, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	if dst.kind != opReg || dst.size != 8 {
		return encResult{}, errors.New("movabs destination must be a 64-bit register")
	}
	src, err := parseOperand(ops[1])
	if err != nil {
		return encResult{}, err
	}
	rex := buildREX(1, 0, 0, boolBit(dst.r.ext()))
	if src.sym != "" {
		b := append([]byte{rex, 0xB8 + byte(dst.r.num()%8)}, make([]byte, 8)...)
		return encResult{bytes: b, relocAt: 2, relocTo: src.sym}, nil
	}
	if src.kind != opImm {
		return encResult{}, errors.New("movabs source must be an immediate or @label")
	}
	b := append([]byte{rex, 0xB8 + byte(dst.r.num()%8)}, le64(src.imm)...)
	return noReloc(b), nil
}

// encodeMovExtend handles movsx/movsxd/movzx, both the register-register
// form and the byte/word-memory-into-register form spec.md §4.4 requires
// for scalar local loads and the I/O primitives (original_source/
// code_generator.py:473,736-745,999 emit exactly this memory form).
func encodeMovExtend(mnem string, ops []string) (encResult, error) {
	if len(ops) != 2 {
		return encResult{}, errors.New(mnem + " requires exactly two operands")
	}
	dst, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	src, err := parseOperand(ops[1])
	if err != nil {
		return encResult{}, err
	}
	if dst.kind != opReg {
		return encResult{}, errors.Errorf("%s destination must be a register", mnem)
	}
	rexW := boolBit(dst.size == 8)

	if mnem == "movsxd" {
		if src.kind != opReg {
			return encResult{}, errors.New("movsxd requires two registers")
		}
		rex := buildREX(rexW, boolBit(dst.r.ext()), 0, boolBit(src.r.ext()))
		mrm := modrm(3, dst.r.num()%8, src.r.num()%8)
		b := []byte{rex, 0x63, mrm}
		return noReloc(b), nil
	}

	var opcode2 byte
	if mnem == "movsx" {
		opcode2 = 0xBE
	} else {
		opcode2 = 0xB6
	}
	if src.size == 2 {
		opcode2++
	}

	switch src.kind {
	case opReg:
		rex := buildREX(rexW, boolBit(dst.r.ext()), 0, boolBit(src.r.ext()))
		mrm := modrm(3, dst.r.num()%8, src.r.num()%8)
		needREX := rexW == 1 || dst.r.ext() || src.r.ext() || src.r.num() >= 4
		b := []byte{}
		if needREX {
			b = append(b, rex)
		}
		b = append(b, 0x0F, opcode2, mrm)
		return noReloc(b), nil
	case opMem:
		mb, rest, _, rexB := encodeMemForm(src.mem, dst.r.num()%8)
		rex := buildREX(rexW, boolBit(dst.r.ext()), 0, rexB)
		needREX := rexW == 1 || dst.r.ext() || rexB == 1
		b := []byte{}
		if needREX {
			b = append(b, rex)
		}
		b = append(b, 0x0F, opcode2, mb)
		b = append(b, rest...)
		return noReloc(b), nil
	default:
		return encResult{}, errors.Errorf("%s source must be a register or a sized memory operand", mnem)
	}
}
