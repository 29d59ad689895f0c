package main

import (
	"strings"
	"testing"
)

// programWithLongForwardJump builds source for a forward jmp that must
// cross n bytes of single-byte nop padding before reaching its target,
// forcing the short (2-byte) encoding to fail and the near (5-byte,
// opcode 0xE9) encoding to be selected instead.
func programWithLongForwardJump(n int) string {
	var sb strings.Builder
	sb.WriteString("jmp end\n")
	for i := 0; i < n; i++ {
		sb.WriteString("nop\n")
	}
	sb.WriteString("end:\nret\n")
	return sb.String()
}

func TestAssembleLongForwardJumpUsesNearForm(t *testing.T) {
	src := programWithLongForwardJump(200)
	unit, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if unit.Code[0] != 0xE9 {
		t.Fatalf("expected a near jmp (0xE9), got opcode byte 0x%02X", unit.Code[0])
	}
	if len(unit.Code) != 5+200+1 {
		t.Fatalf("expected code length %d, got %d", 5+200+1, len(unit.Code))
	}
}

func TestAssembleRelaxationIsIdempotent(t *testing.T) {
	src := programWithLongForwardJump(200)
	first, err := Assemble(src)
	if err != nil {
		t.Fatalf("first Assemble failed: %v", err)
	}
	second, err := Assemble(src)
	if err != nil {
		t.Fatalf("second Assemble failed: %v", err)
	}
	if len(first.Code) != len(second.Code) {
		t.Fatalf("relaxation is not stable across runs: %d vs %d bytes", len(first.Code), len(second.Code))
	}
}

func TestAssembleShortBackwardJump(t *testing.T) {
	src := "start:\nnop\njmp start\n"
	unit, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	// nop (1 byte) then a backward jmp within short range: relaxation
	// settles on the short (2-byte, EB rel8) form, giving a 3-byte unit
	// with start at offset 0.
	if unit.Labels["start"] != 0 {
		t.Fatalf("expected label start at offset 0, got %d", unit.Labels["start"])
	}
	if len(unit.Code) != 3 || unit.Code[1] != 0xEB {
		t.Fatalf("expected nop + short jmp (3 bytes, EB), got % X", unit.Code)
	}
}

func TestAssembleUndefinedLabelErrors(t *testing.T) {
	if _, err := Assemble("jmp nowhere\n"); err == nil {
		t.Fatal("expected an error for a jump to an undefined label")
	}
}

func TestAssembleMovzxFromByteMemory(t *testing.T) {
	unit, err := Assemble("movzx eax, byte [rbp-8]\nret\n")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if unit.Code[0] != 0x0F || unit.Code[1] != 0xB6 {
		t.Fatalf("expected movzx r32, byte [mem] as 0F B6, got % X", unit.Code[:2])
	}
}

func TestAssembleMovsxFromWordMemory(t *testing.T) {
	unit, err := Assemble("movsx eax, word [rbp-8]\nret\n")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if unit.Code[0] != 0x0F || unit.Code[1] != 0xBF {
		t.Fatalf("expected movsx r32, word [mem] as 0F BF, got % X", unit.Code[:2])
	}
}

func TestAssembleCallIsAlwaysFiveBytes(t *testing.T) {
	src := "call target\ntarget:\nret\n"
	unit, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if unit.Code[0] != 0xE8 {
		t.Fatalf("expected call opcode 0xE8, got 0x%02X", unit.Code[0])
	}
	if unit.Labels["target"] != 5 {
		t.Fatalf("expected target at offset 5 (call is always 5 bytes), got %d", unit.Labels["target"])
	}
}
