package elfobj

import (
	"debug/elf"
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"

	"linecost/internal/disasm"
)

// lineResolver maps a virtual address to its source file and line.
type lineResolver func(addr uint64) (file string, line int)

func (f *File) decode(addr uint64, code []byte) ([]disasm.Entry, error) {
	switch f.elff.Machine {
	case elf.EM_X86_64:
		return decodeX86(addr, code, f.lineFor), nil
	case elf.EM_AARCH64:
		return decodeARM64(addr, code, f.lineFor), nil
	default:
		return nil, fmt.Errorf("%s: unsupported machine %v", f.path, f.elff.Machine)
	}
}

// decodeX86 decodes variable-length x86-64 instructions. Undecodable bytes
// are emitted one at a time so the address walk never stalls.
func decodeX86(addr uint64, code []byte, lineFor lineResolver) []disasm.Entry {
	var out []disasm.Entry
	pc := addr
	for len(code) > 0 {
		var size int
		var text string
		inst, err := x86asm.Decode(code, 64)
		if err != nil || inst.Len == 0 {
			size = 1
			text = fmt.Sprintf(".byte %#02x", code[0])
		} else {
			size = inst.Len
			text = x86asm.GNUSyntax(inst, pc, nil)
		}
		_, line := lineFor(pc)
		out = append(out, disasm.Entry{Addr: pc, Line: line, Text: text})
		pc += uint64(size)
		code = code[size:]
	}
	return out
}

// decodeARM64 decodes fixed-width ARM64 instructions. Undecodable words are
// emitted as .word, mirroring what objdump does for data in text.
func decodeARM64(addr uint64, code []byte, lineFor lineResolver) []disasm.Entry {
	var out []disasm.Entry
	for off := 0; off+4 <= len(code); off += 4 {
		pc := addr + uint64(off)
		raw := binary.LittleEndian.Uint32(code[off : off+4])
		var text string
		if inst, err := arm64asm.Decode(code[off : off+4]); err != nil {
			text = fmt.Sprintf(".word %#08x", raw)
		} else {
			text = inst.String()
		}
		_, line := lineFor(pc)
		out = append(out, disasm.Entry{Addr: pc, Line: line, Text: text})
	}
	return out
}
