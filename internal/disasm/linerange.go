package disasm

// LineRange represents a half-open range of lines [From, To).
type LineRange struct{ From, To int }

// Contains checks whether line is contained in the range.
func (r LineRange) Contains(line int) bool {
	return r.From <= line && line < r.To
}
