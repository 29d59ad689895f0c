package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// memOperand is a decoded [rbp±disp] or [rXX] bracketed memory form.
type memOperand struct {
	base reg
	disp int32
}

// operandKind distinguishes how an operand token was written, so the
// per-mnemonic encoders can dispatch without re-parsing.
type operandKind int

const (
	opReg operandKind = iota
	opImm
	opMem
)

// operand is one parsed instruction operand: register, immediate, or a
// sized bracketed memory form.
type operand struct {
	kind operandKind
	r    reg
	size int // operand width in bytes; 0 for untyped immediates
	imm  int64
	mem  memOperand
	sym  string // relocation label, set when the text was "@label"
}

// encResult is the output of encoding a single instruction: the machine
// code bytes plus an optional pending relocation (movabs @label) whose
// offset is relative to the start of this instruction's bytes.
type encResult struct {
	bytes   []byte
	relocAt int // -1 if no relocation
	relocTo string
}

func noReloc(b []byte) encResult { return encResult{bytes: b, relocAt: -1} }

// buildREX assembles a REX prefix from its four bit fields.
func buildREX(w, r, x, b int) byte {
	return 0x40 | byte(w<<3) | byte(r<<2) | byte(x<<1) | byte(b)
}

// modrm packs mod/reg/rm into one ModR/M byte.
func modrm(mod, regField, rm int) byte {
	return byte((mod&0x3)<<6 | (regField&0x7)<<3 | (rm & 0x7))
}

// le32 / le64 render a signed value as little-endian bytes.
func le32(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v int64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// parseImmediateText parses a decimal, 0x, 0b, or character-literal
// immediate, mirroring original_source/assembler.py's parse_immediate.
func parseImmediateText(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty immediate")
	}
	if len(s) == 3 && s[0] == '\'' && s[2] == '\'' {
		return int64(s[1]), nil
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
		if s == "" {
			return 0, errors.New("invalid immediate: -")
		}
	}
	var v uint64
	var err error
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 64)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		v, err = strconv.ParseUint(s[2:], 2, 64)
	default:
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, errors.Errorf("invalid immediate: %s", s)
	}
	if neg {
		return -int64(v), nil
	}
	return int64(v), nil
}

func fitsSigned(v int64, bits int) bool {
	switch bits {
	case 8:
		return v >= -128 && v <= 255
	case 32:
		return v >= -2147483648 && v <= 4294967295
	default:
		return true
	}
}

// parseMemOperand decodes "[rbp-8]", "[rbp+16]", "[rbp]", "[r11]" forms.
func parseMemOperand(s string) (memOperand, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return memOperand{}, false
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	base, _, err := parseReg(baseRegName(inner))
	if err != nil {
		return memOperand{}, false
	}
	if idx := strings.IndexAny(inner, "+-"); idx > 0 {
		disp, derr := parseImmediateText(strings.TrimSpace(inner[idx:]))
		if derr != nil {
			return memOperand{}, false
		}
		return memOperand{base: base, disp: int32(disp)}, true
	}
	return memOperand{base: base, disp: 0}, true
}

func baseRegName(inner string) string {
	if idx := strings.IndexAny(inner, "+-"); idx > 0 {
		return strings.TrimSpace(inner[:idx])
	}
	return inner
}

// parseOperand classifies a single raw operand token.
func parseOperand(tok string) (operand, error) {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "@") {
		return operand{kind: opImm, sym: tok[1:]}, nil
	}
	for _, sz := range []struct {
		prefix string
		size   int
	}{{"byte", 1}, {"word", 2}, {"dword", 4}, {"qword", 8}} {
		if strings.HasPrefix(tok, sz.prefix+" ") || strings.HasPrefix(tok, sz.prefix+"[") {
			rest := strings.TrimSpace(tok[len(sz.prefix):])
			m, ok := parseMemOperand(rest)
			if !ok {
				return operand{}, errors.Errorf("bad memory operand %q", tok)
			}
			return operand{kind: opMem, mem: m, size: sz.size}, nil
		}
	}
	if strings.HasPrefix(tok, "[") {
		m, ok := parseMemOperand(tok)
		if !ok {
			return operand{}, errors.Errorf("bad memory operand %q", tok)
		}
		return operand{kind: opMem, mem: m, size: 8}, nil
	}
	if r, size, err := parseReg(tok); err == nil {
		return operand{kind: opReg, r: r, size: size}, nil
	}
	imm, err := parseImmediateText(tok)
	if err != nil {
		return operand{}, errors.Errorf("not a register, immediate, or memory operand: %q", tok)
	}
	return operand{kind: opImm, imm: imm}, nil
}

// encodeMemForm emits the ModR/M (+SIB +disp) bytes addressing a memory
// operand with regField as the ModR/M.reg bits, following the same
// rbp-relative and direct-register-indirect encodings as the teacher's
// original assembler (disp8 vs disp32, SIB-required rsp/r12, disp8=0 for r13).
func encodeMemForm(m memOperand, regField int) (modrmByte byte, rest []byte, rexX, rexB int) {
	switch m.base {
	case RBP, R13:
		rm := 0b101
		rexB = boolBit(m.base == R13)
		if m.disp == 0 && m.base == R13 {
			return modrm(1, regField, rm), []byte{0x00}, 0, rexB
		}
		if m.disp >= -128 && m.disp <= 127 {
			return modrm(1, regField, rm), []byte{byte(int8(m.disp))}, 0, rexB
		}
		return modrm(2, regField, rm), le32(m.disp), 0, rexB
	case RSP, R12:
		rexB = boolBit(m.base == R12)
		if m.disp == 0 {
			return modrm(0, regField, 0b100), []byte{0x24}, 0, rexB
		}
		if m.disp >= -128 && m.disp <= 127 {
			return modrm(1, regField, 0b100), []byte{0x24, byte(int8(m.disp))}, 0, rexB
		}
		return modrm(2, regField, 0b100), append([]byte{0x24}, le32(m.disp)...), 0, rexB
	default:
		rm := m.base.num() % 8
		rexB = boolBit(m.base.ext())
		if m.disp == 0 {
			return modrm(0, regField, rm), nil, 0, rexB
		}
		if m.disp >= -128 && m.disp <= 127 {
			return modrm(1, regField, rm), []byte{byte(int8(m.disp))}, 0, rexB
		}
		return modrm(2, regField, rm), le32(m.disp), 0, rexB
	}
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// splitLine tokenizes "mnemonic op1, op2" into a lowercase mnemonic and
// its comma-separated operand texts.
func splitLine(line string) (string, []string) {
	line = strings.TrimSpace(line)
	fields := strings.SplitN(line, " ", 2)
	mnem := strings.ToLower(fields[0])
	var ops []string
	if len(fields) > 1 {
		for _, p := range strings.Split(fields[1], ",") {
			ops = append(ops, strings.TrimSpace(p))
		}
	}
	return mnem, ops
}

// isControlFlow reports whether mnem needs assemble.go's address-aware
// encoding path (label resolution, relaxation, or relocations) rather
// than the plain Emit dispatch below.
func isControlFlow(mnem string) bool {
	switch mnem {
	case "jmp", "call", "movabs",
		"je", "jz", "jne", "jnz", "jl", "jnge", "jle", "jng", "jg", "jnle",
		"jge", "jnl", "ja", "jnbe", "jae", "jnb", "jb", "jnae", "jbe", "jna",
		"js", "jns":
		return true
	default:
		return false
	}
}

// Emit dispatches one address-independent textual instruction to the
// matching encoder, the same shape as the teacher's emit.go text-to-bytes
// dispatch function. Control-flow and movabs-with-relocation instructions
// are handled by assemble.go instead, since they need address context.
func Emit(line string) (encResult, error) {
	mnem, ops := splitLine(line)
	switch mnem {
	case "mov":
		return encodeMov(ops)
	case "movsx", "movsxd", "movzx":
		return encodeMovExtend(mnem, ops)
	case "add", "or", "and", "sub", "xor", "cmp":
		return encodeALU(mnem, ops)
	case "test":
		return encodeTest(ops)
	case "inc", "dec":
		return encodeIncDec(mnem, ops)
	case "neg":
		return encodeNeg(ops)
	case "imul":
		return encodeIMul(ops)
	case "div", "idiv":
		return encodeDiv(mnem, ops)
	case "push", "pop":
		return encodePushPop(mnem, ops)
	case "shl", "shr", "sal", "sar":
		return encodeShift(mnem, ops)
	case "ret", "nop", "int3", "syscall", "leave", "pushf", "popf", "cdq", "cqo":
		return encodeSingle(mnem)
	default:
		if isControlFlow(mnem) {
			return encResult{}, errors.Errorf("%q requires address-aware encoding via the assembler", mnem)
		}
		return encResult{}, errors.Errorf("unknown mnemonic %q", mnem)
	}
}
