package disasm

// File represents an object file, a module or anything that contains functions.
type File interface {
	// Close closes the underlying data.
	Close() error
	// Funcs enumerates all the disassemblable functions.
	Funcs() []Func
}

// Func represents a function or method that can be independently disassembled.
type Func interface {
	// Name is the name of the func.
	Name() string
	// Load decodes the instructions and resolves their source lines.
	Load() (*Output, error)
}
