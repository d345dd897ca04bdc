package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/klauspost/compress/zip"

	"github.com/infracollect/xlunlock/internal/engine"
	"github.com/infracollect/xlunlock/internal/transcode"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

// printResults prints one line per unlocked workbook.
func printResults(results []engine.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tOUTPUT\tSIZE\tREMOVED\tSKIPPED")
	for _, result := range results {
		skipped := result.Meta["skipped"]
		if skipped == "" {
			skipped = "-"
		} else {
			skipped = warnColor.Sprint(skipped)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			result.ID,
			result.Output,
			humanize.IBytes(uint64(result.Bytes)),
			okColor.Sprint(result.Meta["removed"]),
			skipped,
		)
	}
	w.Flush()
}

// printReports prints the inspection of one workbook.
func printReports(reports []transcode.EntryReport) (protected int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY\tSIZE\tMETHOD\tRULE\tSTATUS")
	for _, r := range reports {
		rule, status := "-", "-"
		if r.Rule != "" {
			rule = r.Rule
			switch {
			case r.Err != nil:
				status = errColor.Sprintf("error: %v", r.Err)
			case r.Protected:
				status = warnColor.Sprint("protected")
				protected++
			default:
				status = okColor.Sprint("unlocked")
			}
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, humanize.IBytes(r.Size), methodName(r.Method), rule, status)
	}
	w.Flush()
	return protected
}

func methodName(method uint16) string {
	switch method {
	case zip.Store:
		return "store"
	case zip.Deflate:
		return "deflate"
	default:
		return strconv.Itoa(int(method))
	}
}
