package elfobj

import (
	"encoding/binary"
	"strings"
	"testing"
)

func noLines(addr uint64) (string, int) { return "", 0 }

func TestDecodeX86(t *testing.T) {
	// NOP; RET
	code := []byte{0x90, 0xc3}

	entries := decodeX86(0x1000, code, noLines)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Addr != 0x1000 {
		t.Errorf("addr[0] = %#x, want 0x1000", entries[0].Addr)
	}
	if entries[1].Addr != 0x1001 {
		t.Errorf("addr[1] = %#x, want 0x1001", entries[1].Addr)
	}
	if !strings.Contains(strings.ToLower(entries[0].Text), "nop") {
		t.Errorf("expected nop, got: %s", entries[0].Text)
	}
	if !strings.Contains(strings.ToLower(entries[1].Text), "ret") {
		t.Errorf("expected ret, got: %s", entries[1].Text)
	}
}

func TestDecodeX86Truncated(t *testing.T) {
	// A lone operand-size prefix cannot decode; it must come out as a
	// single raw byte so the address walk continues.
	entries := decodeX86(0x1000, []byte{0x66}, noLines)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if !strings.HasPrefix(entries[0].Text, ".byte") {
		t.Errorf("expected .byte fallback, got: %s", entries[0].Text)
	}
}

func TestDecodeX86Lines(t *testing.T) {
	lineAt := func(addr uint64) (string, int) {
		if addr == 0x1001 {
			return "main.c", 42
		}
		return "", 0
	}

	entries := decodeX86(0x1000, []byte{0x90, 0xc3}, lineAt)
	if entries[0].Line != 0 {
		t.Errorf("line[0] = %d, want 0", entries[0].Line)
	}
	if entries[1].Line != 42 {
		t.Errorf("line[1] = %d, want 42", entries[1].Line)
	}
}

func TestDecodeARM64(t *testing.T) {
	// Two NOPs (0xd503201f), then a word that does not decode.
	code := make([]byte, 12)
	binary.LittleEndian.PutUint32(code[0:4], 0xd503201f)
	binary.LittleEndian.PutUint32(code[4:8], 0xd503201f)
	binary.LittleEndian.PutUint32(code[8:12], 0xffffffff)

	entries := decodeARM64(0x2000, code, noLines)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[1].Addr != 0x2004 {
		t.Errorf("addr[1] = %#x, want 0x2004", entries[1].Addr)
	}
	if !strings.Contains(strings.ToLower(entries[0].Text), "nop") {
		t.Errorf("expected nop, got: %s", entries[0].Text)
	}
	if !strings.HasPrefix(entries[2].Text, ".word") {
		t.Errorf("expected .word fallback, got: %s", entries[2].Text)
	}
}

func TestDecodeARM64Short(t *testing.T) {
	if entries := decodeARM64(0x2000, []byte{0x1f, 0x20}, noLines); len(entries) != 0 {
		t.Fatalf("got %d entries for a short buffer, want 0", len(entries))
	}
}
