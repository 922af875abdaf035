package disasm

import (
	"sort"

	"golang.org/x/exp/slices"
)

// LineSet represents a set of source line numbers.
type LineSet struct {
	list []int
}

// Add adds line to the set.
func (rs *LineSet) Add(line int) {
	if len(rs.list) == 0 {
		rs.list = append(rs.list, line)
		return
	}
	at := sort.SearchInts(rs.list, line)
	if at >= len(rs.list) {
		rs.list = append(rs.list, line)
	} else if rs.list[at] != line {
		rs.list = slices.Insert(rs.list, at, line)
	}
}

// Contains reports whether line is in the set.
func (rs *LineSet) Contains(line int) bool {
	at := sort.SearchInts(rs.list, line)
	return at < len(rs.list) && rs.list[at] == line
}

// Len returns the number of distinct lines in the set.
func (rs *LineSet) Len() int { return len(rs.list) }

// Min returns the smallest line in the set, or 0 when empty.
func (rs *LineSet) Min() int {
	if len(rs.list) == 0 {
		return 0
	}
	return rs.list[0]
}

// Max returns the largest line in the set, or 0 when empty.
func (rs *LineSet) Max() int {
	if len(rs.list) == 0 {
		return 0
	}
	return rs.list[len(rs.list)-1]
}

// Ranges converts the line set to line ranges, expanding each line by
// context lines on both sides and merging overlaps.
func (rs *LineSet) Ranges(context int) []LineRange {
	if len(rs.list) == 0 {
		return nil
	}

	var all []LineRange

	current := LineRange{From: rs.list[0] - context, To: rs.list[0] + context + 1}
	if current.From < 1 {
		current.From = 1
	}
	for _, line := range rs.list {
		if line-context <= current.To {
			current.To = line + context + 1
		} else {
			all = append(all, current)
			current = LineRange{From: line - context, To: line + context + 1}
		}
	}
	all = append(all, current)

	return all
}
