package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"linecost/internal/annotate"
)

// firstCost is the index of the first cost column in the table.
const firstCost = annotate.ColLine + 1

// renderTable writes the annotated source as an aligned text table, using
// only the table's query surface. Cost columns come first, then the line
// number, then the source text with highlight and reachability markers.
func renderTable(w io.Writer, table *annotate.Table, percent bool) {
	// Row 0 is the symbol label, not file content.
	fmt.Fprintf(w, "%s\n", table.CellValue(0, annotate.ColSource, annotate.RoleDisplay))

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	defer tw.Flush()

	for col := firstCost; col < table.ColumnCount(); col++ {
		fmt.Fprintf(tw, "%s\t", table.HeaderLabel(col))
	}
	fmt.Fprintf(tw, "%s\t \t%s\n", table.HeaderLabel(annotate.ColLine), table.HeaderLabel(annotate.ColSource))

	for row := 1; row < table.RowCount(); row++ {
		for col := firstCost; col < table.ColumnCount(); col++ {
			if percent {
				fmt.Fprintf(tw, "%s\t", table.CellValue(row, col, annotate.RoleDisplay))
			} else {
				fmt.Fprintf(tw, "%d\t", table.CellValue(row, col, annotate.RoleCost))
			}
		}

		fmt.Fprintf(tw, "%d\t", table.CellValue(row, annotate.ColLine, annotate.RoleDisplay))

		marker := " "
		if table.CellValue(row, annotate.ColSource, annotate.RoleReachableLine) != annotate.NotReachable {
			marker = "*"
		}
		if hl, _ := table.CellValue(row, annotate.ColSource, annotate.RoleHighlight).(bool); hl {
			marker = ">"
		}

		fmt.Fprintf(tw, "%s\t%s\n", marker, table.CellValue(row, annotate.ColSource, annotate.RoleDisplay))
	}
}
