// Package elfobj implements a disassembly provider for ELF binaries with
// DWARF line information.
package elfobj

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/ianlancetaylor/demangle"

	"linecost/internal/disasm"
)

var _ disasm.File = (*File)(nil)
var _ disasm.Func = (*Func)(nil)

// File is an ELF executable or shared object opened for disassembly.
type File struct {
	path string
	elff *elf.File

	funcs  []disasm.Func
	byAddr []*Func // same funcs, sorted by entry address

	lines []dwarf.LineEntry // flat line table, sorted by address

	// bias is the virtual address minus file offset of the executable
	// segment; isDyn marks position-independent objects whose sampled
	// addresses need translating back into this address space.
	bias  uint64
	isDyn bool

	cache map[*Func]*disasm.Output
}

// Func is one STT_FUNC symbol from the symbol table.
type Func struct {
	obj  *File
	name string
	addr uint64
	size uint64
}

func (fn *Func) Name() string { return fn.name }

// Load decodes fn and resolves its source lines.
func (fn *Func) Load() (*disasm.Output, error) {
	return fn.obj.load(fn)
}

// Load opens an ELF object and indexes its functions and line table.
func Load(path string) (*File, error) {
	elff, err := elf.Open(path)
	if err != nil {
		return nil, err
	}

	file := &File{
		path:  path,
		elff:  elff,
		isDyn: elff.Type == elf.ET_DYN,
		cache: make(map[*Func]*disasm.Output),
	}

	for _, prog := range elff.Progs {
		if prog.Type == elf.PT_LOAD && prog.Flags&elf.PF_X != 0 {
			file.bias = prog.Vaddr - prog.Off
			break
		}
	}

	syms, err := elff.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		_ = elff.Close()
		return nil, err
	}
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Section == elf.SHN_UNDEF || sym.Value == 0 {
			continue
		}
		file.byAddr = append(file.byAddr, &Func{
			obj:  file,
			name: sym.Name,
			addr: sym.Value,
			size: sym.Size,
		})
	}
	sort.Slice(file.byAddr, func(i, k int) bool {
		return file.byAddr[i].addr < file.byAddr[k].addr
	})
	// Assembly symbols often carry no size; extend them to the next symbol.
	for i, fn := range file.byAddr {
		if fn.size == 0 {
			if i+1 < len(file.byAddr) {
				fn.size = file.byAddr[i+1].addr - fn.addr
			} else {
				fn.size = 1
			}
		}
	}
	for _, fn := range file.byAddr {
		file.funcs = append(file.funcs, fn)
	}

	file.lines = lineTable(elff)

	return file, nil
}

func (f *File) Funcs() []disasm.Func { return f.funcs }

func (f *File) Close() error {
	return f.elff.Close()
}

// FindAddr returns the name of the function containing va.
func (f *File) FindAddr(va uint64) (string, bool) {
	i := sort.Search(len(f.byAddr), func(i int) bool {
		return va < f.byAddr[i].addr+f.byAddr[i].size
	})
	if i < len(f.byAddr) && f.byAddr[i].addr <= va {
		return f.byAddr[i].name, true
	}
	return "", false
}

// ObjAddr translates a sampled instruction pointer into this object's
// virtual address space, given the mapping it was observed in. Fixed-load
// executables sample at their link address already.
func (f *File) ObjAddr(ip, mapStart, mapFileOff uint64) uint64 {
	if !f.isDyn {
		return ip
	}
	return ip - mapStart + mapFileOff + f.bias
}

func (f *File) load(fn *Func) (*disasm.Output, error) {
	if out, ok := f.cache[fn]; ok {
		return out, nil
	}

	code, err := f.textBytes(fn.addr, fn.size)
	if err != nil {
		return nil, err
	}

	entries, err := f.decode(fn.addr, code)
	if err != nil {
		return nil, err
	}

	out := &disasm.Output{
		Name:       fn.name,
		PrettyName: demangle.Filter(fn.name),
		File:       f.fileFor(fn.addr),
		Entries:    entries,
	}
	f.cache[fn] = out
	return out, nil
}

// textBytes reads the raw bytes of [addr, addr+size) from the section that
// contains them.
func (f *File) textBytes(addr, size uint64) ([]byte, error) {
	for _, sec := range f.elff.Sections {
		if sec.Type != elf.SHT_PROGBITS || sec.Flags&elf.SHF_EXECINSTR == 0 {
			continue
		}
		if addr < sec.Addr || addr+size > sec.Addr+sec.Size {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return nil, err
		}
		return data[addr-sec.Addr : addr-sec.Addr+size], nil
	}
	return nil, fmt.Errorf("%s: no executable section contains %#x", f.path, addr)
}

// lineFor resolves an address against the DWARF line table. Line 0 means
// the address has no source mapping.
func (f *File) lineFor(addr uint64) (string, int) {
	i := sort.Search(len(f.lines), func(i int) bool {
		return addr < f.lines[i].Address
	})
	if i == 0 || f.lines[i-1].EndSequence {
		return "", 0
	}
	ent := &f.lines[i-1]
	if ent.File == nil {
		return "", 0
	}
	return ent.File.Name, ent.Line
}

func (f *File) fileFor(addr uint64) string {
	name, _ := f.lineFor(addr)
	return name
}

// lineTable flattens the line tables of every compile unit into a single
// address-sorted slice. Objects without DWARF yield an empty table; their
// instructions simply carry no source mapping.
func lineTable(elff *elf.File) []dwarf.LineEntry {
	dwarff, err := elff.DWARF()
	if err != nil {
		slog.Debug("no DWARF data", "error", err)
		return nil
	}

	var out []dwarf.LineEntry

	dr := dwarff.Reader()
	for {
		ent, err := dr.Next()
		if ent == nil || err != nil {
			break
		}
		if ent.Tag != dwarf.TagCompileUnit {
			dr.SkipChildren()
			continue
		}

		lr, err := dwarff.LineReader(ent)
		if err != nil || lr == nil {
			continue
		}
		for {
			var lent dwarf.LineEntry
			err := lr.Next(&lent)
			if err == io.EOF {
				break
			}
			if err != nil {
				slog.Debug("line table truncated", "error", err)
				break
			}
			out = append(out, lent)
		}
	}

	sort.SliceStable(out, func(i, k int) bool {
		return out[i].Address < out[k].Address
	})
	return out
}
