package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/refaktor/zigbind"
	"github.com/refaktor/zigbind/diag"
	"github.com/refaktor/zigbind/emit"
)

func printStats(w io.Writer, results []*zigbind.Result) {
	var stats emit.Stats
	var timing zigbind.Timing
	var numShimFiles int
	for _, res := range results {
		stats.Add(res.Output.Stats)
		timing.Parse += res.Timing.Parse
		timing.Emit += res.Timing.Emit
		timing.Write += res.Timing.Write
		numShimFiles += len(res.Companions)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "==Binding stats==\n")
	fmt.Fprintf(w, "Generated %v target(s) with %v shim file(s).\n", len(results), numShimFiles)
	{
		var emitted, skipped int
		tbl := tablewriter.NewWriter(w)
		tbl.SetHeader([]string{"Category", "Emitted", "Skipped"})
		for cat := range emit.NumCategories {
			emitted += stats.Emitted[cat]
			skipped += stats.Skipped[cat]
			tbl.Append([]string{
				cat.String(),
				strconv.Itoa(stats.Emitted[cat]),
				strconv.Itoa(stats.Skipped[cat]),
			})
		}
		tbl.Append([]string{"==TOTAL==", strconv.Itoa(emitted), strconv.Itoa(skipped)})
		tbl.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER})
		tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		tbl.SetCenterSeparator("|")
		tbl.Render()
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "==Timing stats==\n")
	fmt.Fprintf(w, "Summed over all targets:\n")
	{
		timeTotal := timing.Parse + timing.Emit + timing.Write
		timePercent := func(t time.Duration) string {
			if timeTotal == 0 {
				return "0.00"
			}
			return strconv.FormatFloat(
				float64(t)/float64(timeTotal)*100,
				'f', 2, 64,
			)
		}

		tbl := tablewriter.NewWriter(w)
		tbl.SetHeader([]string{"Task", "Time", "Time %"})
		tbl.AppendBulk([][]string{
			{"Parse headers", timing.Parse.String(), timePercent(timing.Parse)},
			{"Emit bindings and shims", timing.Emit.String(), timePercent(timing.Emit)},
			{"Write files", timing.Write.String(), timePercent(timing.Write)},
			{"==TOTAL==", timeTotal.String(), "100"},
		})
		tbl.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT})
		tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		tbl.SetCenterSeparator("|")
		tbl.Render()
	}

	var skipped []string
	for _, res := range results {
		if err := diag.Join(res.Output.Diagnostics); err != nil {
			skipped = append(skipped, fmt.Sprintf("%v: %v", res.Target, err))
		}
	}
	if len(skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "==Skipped declarations==\n")
		for _, s := range skipped {
			fmt.Fprintln(w, s)
		}
	}
}
