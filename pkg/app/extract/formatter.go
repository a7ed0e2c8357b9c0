package extract

import (
	"fmt"
	"text/tabwriter"

	"github.com/deploymenttheory/go-msi/pkg/app"
	"github.com/deploymenttheory/go-msi/pkg/msi"
)

// FormatStream writes a single extraction result
func FormatStream(ctx *app.Context, result *msi.ExtractedStream) error {
	return app.Render(ctx, result, func(w *tabwriter.Writer) error {
		writeStreams(w, []msi.ExtractedStream{*result})
		return nil
	})
}

// FormatReport writes an extraction report
func FormatReport(ctx *app.Context, report *msi.ExtractionReport) error {
	return app.Render(ctx, report, func(w *tabwriter.Writer) error {
		if report.Signature != "" {
			fmt.Fprintf(w, "Signature: %s\n", report.Signature)
		}
		if len(report.Streams) > 0 {
			writeStreams(w, report.Streams)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, Summary(report))
		return nil
	})
}

// FormatExport writes an export report
func FormatExport(ctx *app.Context, report *msi.ExportReport) error {
	return app.Render(ctx, report, func(w *tabwriter.Writer) error {
		fmt.Fprintf(w, "TABLE\tROWS\n")
		fmt.Fprintf(w, "-----\t----\n")
		for _, t := range report.Tables {
			fmt.Fprintf(w, "%s\t%d\n", t.Name, t.Rows)
		}
		for _, d := range report.Diagnostics {
			fmt.Fprintf(w, "%s\tskipped: %s\n", d.Name, d.Reason)
		}
		fmt.Fprintf(w, "\nDatabase: %s\n", report.Database)
		return nil
	})
}

func writeStreams(w *tabwriter.Writer, streams []msi.ExtractedStream) {
	fmt.Fprintf(w, "STREAM\tSTATUS\tSIZE\tPATH\tDIGEST\n")
	fmt.Fprintf(w, "------\t------\t----\t----\t------\n")
	for _, s := range streams {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Status, app.FormatBytes(int64(s.Size)), s.Path, s.Digest)
	}
}

// Summary provides a one line account of an extraction report
func Summary(report *msi.ExtractionReport) string {
	counts := map[msi.ExtractStatus]int{}
	var total int64
	for _, s := range report.Streams {
		counts[s.Status]++
		total += int64(s.Size)
	}
	dest := report.Directory
	if report.Archive != "" {
		dest = report.Archive
	}

	summary := fmt.Sprintf("Extracted %d stream", counts[msi.ExtractWritten]+counts[msi.ExtractTruncated])
	if n := counts[msi.ExtractWritten] + counts[msi.ExtractTruncated]; n != 1 {
		summary += "s"
	}
	summary += fmt.Sprintf(" (%s) to %s", app.FormatBytes(total), dest)
	if n := counts[msi.ExtractTruncated]; n > 0 {
		summary += fmt.Sprintf(", %d truncated", n)
	}
	if n := counts[msi.ExtractFailed]; n > 0 {
		summary += fmt.Sprintf(", %d failed", n)
	}
	return summary
}
