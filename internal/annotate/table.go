// Package annotate builds a line-indexed view of one symbol's source code,
// annotated with the self cost of every instruction attributed to each line.
package annotate

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"linecost/internal/costs"
	"linecost/internal/disasm"
)

// Role selects which facet of a cell CellValue reports.
type Role int

const (
	// RoleDisplay is the cell's presentation value: source text, line
	// number, or a formatted relative cost.
	RoleDisplay Role = iota
	// RoleCost is the raw accumulated self cost at the row's line.
	RoleCost
	// RoleTotalCost is the cost type's grand total, identical for every row.
	RoleTotalCost
	// RoleHighlight reports whether the row's line is highlighted.
	RoleHighlight
	// RoleReachableLine is the row's line number if any instruction
	// resolves to it, and NotReachable otherwise.
	RoleReachableLine
)

// Fixed leading columns; cost columns follow, one per cost type.
const (
	ColSource = iota
	ColLine

	fixedColumns
)

// NotReachable is the RoleReachableLine sentinel for lines without code.
const NotReachable = -1

// NoHighlight clears the highlighted line. Source lines are 1-based, so
// zero never matches a real line.
const NoHighlight = 0

// ChangeKind distinguishes a full content reset from a cheap, column-scoped
// row update.
type ChangeKind int

const (
	ChangeReset ChangeKind = iota
	ChangeRows
)

// Change describes one content update delivered to watchers.
type Change struct {
	Kind ChangeKind

	// Col, FromRow and ToRow bound the affected cells for ChangeRows.
	Col     int
	FromRow int
	ToRow   int
}

// lineCosts accumulates self cost per source line for one cost type.
// A line never added has implicit cost zero.
type lineCosts map[int]uint64

func (c lineCosts) add(line int, cost uint64) { c[line] += cost }

// Table is a windowed, cost-annotated source listing for a single symbol.
//
// Row 0 is a synthetic header row holding the symbol's display name, not
// file content; real source starts at row 1 and maps to absolute file lines
// through a constant offset. Table is not safe for concurrent use and must
// not be mutated from inside a watcher callback.
type Table struct {
	sourceRoot string
	results    *costs.Results

	// ReadFile loads the source file on Load. Overridable for testing;
	// defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)

	rows      []string // row 0 is the symbol label
	types     []costs.Type
	perType   []lineCosts
	valid     disasm.LineSet
	offset    int
	highlight int

	watchers []func(Change)
}

// New returns an empty table with no cost types.
func New() *Table {
	return &Table{ReadFile: os.ReadFile}
}

// Watch registers fn to be called after every content change. Callbacks run
// synchronously on the mutating call, after the new state is fully visible.
func (t *Table) Watch(fn func(Change)) {
	t.watchers = append(t.watchers, fn)
}

func (t *Table) notify(c Change) {
	for _, fn := range t.watchers {
		fn(c)
	}
}

// clearContent drops everything derived from a load: rows, costs, the
// valid-line set, the offset, the column catalog and the highlight.
func (t *Table) clearContent() {
	t.rows = nil
	t.types = nil
	t.perType = nil
	t.valid = disasm.LineSet{}
	t.offset = 0
	t.highlight = NoHighlight
}

// Reset clears the displayed content. Watchers observe a single reset with
// zero rows and only the two fixed columns.
func (t *Table) Reset() {
	t.clearContent()
	t.notify(Change{Kind: ChangeReset})
}

// SetSourceRoot records the base directory used to resolve relative source
// file names on subsequent loads. No validation happens here.
func (t *Table) SetSourceRoot(root string) {
	t.sourceRoot = root
}

// SetResults installs the active cost context. The displayed content is
// reset because the number of cost columns may change; per-line costs are
// recomputed on the next Load.
func (t *Table) SetResults(r *costs.Results) {
	t.results = r
	t.clearContent()
	if r != nil {
		t.types = r.Types
	}
	t.notify(Change{Kind: ChangeReset})
}

func (t *Table) resolve(name string) string {
	if t.sourceRoot == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(t.sourceRoot, name)
}

// splitLines splits file content into physical lines. A final newline does
// not produce a phantom empty line, so index i is exactly file line i+1.
func splitLines(data []byte) []string {
	lines := strings.Split(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// Load rebuilds the table from one symbol's disassembly: it aggregates the
// self cost of every instruction onto its source line, windows the source
// file to the referenced line range, and publishes the result atomically.
//
// A missing source file name or an unreadable file is a normal condition
// (inlined library code, stripped debug info) and leaves the previous
// content untouched. The same applies to a disassembly whose line numbers
// cannot form a window; that points at malformed upstream data and is
// logged, never surfaced.
func (t *Table) Load(out *disasm.Output) {
	if out == nil || out.File == "" {
		return
	}
	data, err := t.ReadFile(t.resolve(out.File))
	if err != nil {
		return
	}

	entry := t.results.Entry(out.Name)
	perType := make([]lineCosts, t.results.NumTypes())
	for i := range perType {
		perType[i] = make(lineCosts)
	}

	var valid disasm.LineSet
	minLine, maxLine := 0, 0

	for _, e := range out.Entries {
		if e.Line == 0 {
			continue
		}
		if minLine == 0 || e.Line < minLine {
			minLine = e.Line
		}
		if e.Line > maxLine {
			maxLine = e.Line
		}
		if self, ok := entry.Self[e.Addr]; ok {
			for i := range perType {
				perType[i].add(e.Line, self.At(i))
			}
		}
		valid.Add(e.Line)
	}

	if minLine == 0 || minLine >= maxLine {
		slog.Debug("disassembly has no usable line window",
			"symbol", out.Name, "min", minLine, "max", maxLine)
		return
	}

	lines := splitLines(data)
	if maxLine > len(lines) {
		slog.Debug("disassembly references lines past end of file",
			"symbol", out.Name, "file", out.File, "max", maxLine, "lines", len(lines))
		return
	}

	rows := make([]string, 0, maxLine-minLine+2)
	rows = append(rows, out.PrettyName)
	rows = append(rows, lines[minLine-1:maxLine]...)

	t.rows = rows
	t.perType = perType
	if t.results != nil {
		t.types = t.results.Types
	} else {
		t.types = nil
	}
	t.valid = valid
	t.offset = minLine - 1
	t.highlight = NoHighlight
	t.notify(Change{Kind: ChangeReset})
}

// RowCount reports the number of displayed rows, including the label row.
func (t *Table) RowCount() int { return len(t.rows) }

// ColumnCount is the two fixed columns plus one column per cost type.
func (t *Table) ColumnCount() int { return fixedColumns + len(t.types) }

// HeaderLabel names column col; unknown columns yield "".
func (t *Table) HeaderLabel(col int) string {
	switch {
	case col == ColSource:
		return "Source Code"
	case col == ColLine:
		return "Line"
	case col >= fixedColumns && col < fixedColumns+len(t.types):
		return t.types[col-fixedColumns].Name
	}
	return ""
}

// LineForRow translates a display row to an absolute source line. It is
// pure arithmetic and defined even for rows outside the loaded range.
func (t *Table) LineForRow(row int) int { return row + t.offset }

// CellValue reports the facet of cell (row, col) selected by role.
// Out-of-range coordinates yield nil, not an error.
func (t *Table) CellValue(row, col int, role Role) any {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= t.ColumnCount() {
		return nil
	}
	line := row + t.offset

	switch role {
	case RoleDisplay, RoleCost, RoleTotalCost:
		switch {
		case col == ColSource:
			return t.rows[row]
		case col == ColLine:
			return line
		default:
			ti := col - fixedColumns
			cost := t.perType[ti][line]
			total := t.types[ti].Total
			switch role {
			case RoleCost:
				return cost
			case RoleTotalCost:
				return total
			}
			return costs.FormatRelative(cost, total, true)
		}

	case RoleHighlight:
		return t.highlight != NoHighlight && line == t.highlight

	case RoleReachableLine:
		if t.valid.Contains(line) {
			return line
		}
		return NotReachable
	}
	return nil
}

// Highlight marks line as the highlighted source line; NoHighlight clears
// it. Watchers get a column-scoped row change, which is much cheaper than a
// reload: only the source column's presentation depends on the highlight.
func (t *Table) Highlight(line int) {
	t.highlight = line
	t.notify(Change{Kind: ChangeRows, Col: ColSource, FromRow: 0, ToRow: len(t.rows)})
}
