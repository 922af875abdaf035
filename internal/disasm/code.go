package disasm

// Output is the disassembly of one symbol, in address order.
type Output struct {
	Name       string // linkage name, as found in the symbol table
	PrettyName string // demangled name, for display
	File       string // source file the symbol resolves to; may be empty

	Entries []Entry
}

// Entry represents a single instruction attributed to a source line.
type Entry struct {
	Addr uint64
	Line int // 1-based source line; 0 means no source mapping
	Text string
}
