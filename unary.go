package main

import "github.com/pkg/errors"

// encodeIncDec handles inc/dec reg, opcode 0xFF /0 or /1 per
// original_source/assembler.py's assemble_inc_dec.
func encodeIncDec(mnem string, ops []string) (encResult, error) {
	if len(ops) != 1 {
		return encResult{}, errors.Errorf("%s requires exactly one operand", mnem)
	}
	r, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	if r.kind != opReg {
		return encResult{}, errors.Errorf("%s requires a register operand", mnem)
	}
	ext := 0
	if mnem == "dec" {
		ext = 1
	}
	switch r.size {
	case 4:
		b := []byte{}
		if r.r.ext() {
			b = append(b, buildREX(0, 0, 0, 1))
		}
		b = append(b, 0xFF, modrm(3, ext, r.r.num()%8))
		return noReloc(b), nil
	case 8:
		rex := buildREX(1, 0, 0, boolBit(r.r.ext()))
		return noReloc([]byte{rex, 0xFF, modrm(3, ext, r.r.num()%8)}), nil
	}
	return encResult{}, errors.Errorf("%s: unsupported width", mnem)
}

// encodeNeg handles neg reg: 0xF7 /3.
func encodeNeg(ops []string) (encResult, error) {
	if len(ops) != 1 {
		return encResult{}, errors.New("neg requires exactly one operand")
	}
	r, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	if r.kind != opReg {
		return encResult{}, errors.New("neg requires a register operand")
	}
	switch r.size {
	case 4:
		b := []byte{}
		if r.r.ext() {
			b = append(b, buildREX(0, 0, 0, 1))
		}
		b = append(b, 0xF7, modrm(3, 3, r.r.num()%8))
		return noReloc(b), nil
	case 8:
		rex := buildREX(1, 0, 0, boolBit(r.r.ext()))
		return noReloc([]byte{rex, 0xF7, modrm(3, 3, r.r.num()%8)}), nil
	}
	return encResult{}, errors.New("neg: unsupported width")
}

// encodeIMul handles both the one-operand form "imul reg" (0xF7 /5,
// implicit rdx:rax/edx:eax widening, used for the primary multiply
// lowering) and the two-operand form "imul dst, src" (0F AF /r).
func encodeIMul(ops []string) (encResult, error) {
	if len(ops) == 1 {
		r, err := parseOperand(ops[0])
		if err != nil {
			return encResult{}, err
		}
		if r.kind != opReg {
			return encResult{}, errors.New("imul requires a register operand")
		}
		switch r.size {
		case 4:
			b := []byte{}
			if r.r.ext() {
				b = append(b, buildREX(0, 0, 0, 1))
			}
			b = append(b, 0xF7, modrm(3, 5, r.r.num()%8))
			return noReloc(b), nil
		case 8:
			rex := buildREX(1, 0, 0, boolBit(r.r.ext()))
			return noReloc([]byte{rex, 0xF7, modrm(3, 5, r.r.num()%8)}), nil
		}
		return encResult{}, errors.New("imul: unsupported width")
	}
	if len(ops) != 2 {
		return encResult{}, errors.New("imul requires one or two operands")
	}
	dst, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	src, err := parseOperand(ops[1])
	if err != nil {
		return encResult{}, err
	}
	if dst.kind != opReg || src.kind != opReg || dst.size != src.size {
		return encResult{}, errors.New("imul requires two same-width registers")
	}
	mrm := modrm(3, dst.r.num()%8, src.r.num()%8)
	switch dst.size {
	case 4:
		b := []byte{}
		if dst.r.ext() || src.r.ext() {
			b = append(b, buildREX(0, boolBit(dst.r.ext()), 0, boolBit(src.r.ext())))
		}
		b = append(b, 0x0F, 0xAF, mrm)
		return noReloc(b), nil
	case 8:
		rex := buildREX(1, boolBit(dst.r.ext()), 0, boolBit(src.r.ext()))
		return noReloc([]byte{rex, 0x0F, 0xAF, mrm}), nil
	}
	return encResult{}, errors.New("imul: unsupported width")
}

// encodeDiv handles div/idiv reg (0xF7 /6 or /7). axis's codegen sets up
// rdx:rax/edx:eax beforehand (cdq for signed division, zeroing edx/rdx
// for unsigned); the divisor is the sole operand here.
func encodeDiv(mnem string, ops []string) (encResult, error) {
	if len(ops) != 1 {
		return encResult{}, errors.Errorf("%s requires exactly one operand", mnem)
	}
	r, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	if r.kind != opReg {
		return encResult{}, errors.Errorf("%s requires a register operand", mnem)
	}
	ext := 6
	if mnem == "idiv" {
		ext = 7
	}
	switch r.size {
	case 4:
		b := []byte{}
		if r.r.ext() {
			b = append(b, buildREX(0, 0, 0, 1))
		}
		b = append(b, 0xF7, modrm(3, ext, r.r.num()%8))
		return noReloc(b), nil
	case 8:
		rex := buildREX(1, 0, 0, boolBit(r.r.ext()))
		return noReloc([]byte{rex, 0xF7, modrm(3, ext, r.r.num()%8)}), nil
	}
	return encResult{}, errors.Errorf("%s: unsupported width", mnem)
}

// encodePushPop handles push/pop reg64, opcodes 0x50+r / 0x58+r.
func encodePushPop(mnem string, ops []string) (encResult, error) {
	if len(ops) != 1 {
		return encResult{}, errors.Errorf("%s requires exactly one operand", mnem)
	}
	r, err := parseOperand(ops[0])
	if err != nil {
		return encResult{}, err
	}
	if r.kind != opReg || r.size == 1 {
		return encResult{}, errors.Errorf("%s requires a 16/32/64-bit register", mnem)
	}
	base := byte(0x50)
	if mnem == "pop" {
		base = 0x58
	}
	b := []byte{}
	if r.r.ext() {
		b = append(b, buildREX(0, 0, 0, 1))
	}
	b = append(b, base+byte(r.r.num()%8))
	return noReloc(b), nil
}
