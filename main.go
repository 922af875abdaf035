package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"

	"linecost/internal/annotate"
	"linecost/internal/costs"
	"linecost/internal/elfobj"
)

func main() {
	profile := flag.String("perf", "perf.data", "perf.data profile to aggregate")
	filter := flag.String("filter", "", "only annotate symbols matching regexp")
	sourceRoot := flag.String("source-root", "", "base directory for relative source paths")
	highlight := flag.Int("highlight", 0, "source line to mark in the output")
	percent := flag.Bool("percent", true, "show costs relative to the event total")

	flag.Parse()
	binPath := flag.Arg(0)

	if binPath == "" {
		fmt.Fprintln(os.Stderr, "linecost [flags] <binary>")
		flag.Usage()
		os.Exit(1)
	}

	var rx *regexp.Regexp
	if *filter != "" {
		var err error
		rx, err = regexp.Compile(*filter)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	obj, err := elfobj.Load(binPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer obj.Close()

	results, err := costs.FromPerf(*profile, binPath, obj)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	table := annotate.New()
	table.SetSourceRoot(*sourceRoot)

	shown := 0
	for _, fn := range obj.Funcs() {
		if rx != nil && !rx.MatchString(fn.Name()) {
			continue
		}
		// Skip symbols the profile never sampled.
		if len(results.Entry(fn.Name()).Self) == 0 {
			continue
		}

		out, err := fn.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		// A failed load keeps the previous content, so clear between
		// symbols to avoid re-rendering the last one.
		table.SetResults(results)
		table.Load(out)
		if table.RowCount() == 0 {
			continue
		}
		table.Highlight(*highlight)

		if shown > 0 {
			fmt.Println()
		}
		renderTable(os.Stdout, table, *percent)
		shown++
	}

	if shown == 0 {
		fmt.Fprintln(os.Stderr, "no annotatable symbols (missing debug info or no matching samples)")
		os.Exit(1)
	}
}
