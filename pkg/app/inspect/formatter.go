package inspect

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/deploymenttheory/go-msi/pkg/app"
	"github.com/deploymenttheory/go-msi/pkg/msi"
)

// FormatMetadata writes metadata in the context's output format
func FormatMetadata(ctx *app.Context, meta *msi.Metadata) error {
	return app.Render(ctx, meta, func(w *tabwriter.Writer) error {
		fmt.Fprintf(w, "FIELD\tVALUE\n")
		fmt.Fprintf(w, "-----\t-----\n")
		field := func(name, value string) {
			if value != "" {
				fmt.Fprintf(w, "%s\t%s\n", name, value)
			}
		}
		field("Title", meta.Title)
		field("Subject", meta.Subject)
		field("Author", meta.Author)
		field("Keywords", meta.Keywords)
		field("Comments", meta.Comments)
		field("Template", meta.Template)
		field("Architecture", meta.Architecture)
		field("Languages", joinInts(meta.Languages))
		field("Language tags", strings.Join(meta.LanguageTags, ","))
		field("Codepage", fmt.Sprintf("%d (%s)", meta.Codepage, meta.CodepageName))
		if meta.PackageCode != nil {
			field("Package code", meta.PackageCode.String())
		} else {
			field("Revision number", meta.RevisionNumber)
		}
		field("Last saved by", meta.LastSavedBy)
		field("Created", formatTime(meta.Created))
		field("Last saved", formatTime(meta.LastSaved))
		field("Last printed", formatTime(meta.LastPrinted))
		if meta.PageCount != nil {
			field("Schema", fmt.Sprint(*meta.PageCount))
		}
		if meta.WordCount != nil {
			field("Source flags", fmt.Sprint(*meta.WordCount))
		}
		field("Creating application", meta.CreatingApplication)
		field("Signed", fmt.Sprint(meta.IsSigned))
		for _, d := range meta.Diagnostics {
			field("Diagnostic", d.Error())
		}
		return nil
	})
}

// FormatStreams writes a stream listing in the context's output format
func FormatStreams(ctx *app.Context, listing *msi.StreamListing) error {
	return app.Render(ctx, listing, func(w *tabwriter.Writer) error {
		if len(listing.Streams) == 0 {
			fmt.Fprintln(w, "No streams found.")
			return nil
		}

		fmt.Fprintf(w, "ID\tNAME\tKIND\tSIZE\tTYPE\tDIGEST\n")
		fmt.Fprintf(w, "--\t----\t----\t----\t----\t------\n")
		for _, s := range listing.Streams {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.Name, s.Kind, app.FormatBytes(int64(s.Size)), dash(s.ContentType), dash(s.Digest))
		}
		writeDiagnostics(w, listing.Diagnostics)
		return nil
	})
}

// FormatTables writes decoded tables in the context's output format. The table form
// prints each table as its own block.
func FormatTables(ctx *app.Context, listing *msi.TableListing) error {
	return app.Render(ctx, listing, func(w *tabwriter.Writer) error {
		if len(listing.Tables) == 0 && len(listing.Diagnostics) == 0 {
			fmt.Fprintln(w, "No tables found.")
			return nil
		}

		for i, t := range listing.Tables {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "== %s (%d rows)\n", t.Name, len(t.Rows))
			names := make([]string, len(t.Columns))
			rules := make([]string, len(t.Columns))
			for c, col := range t.Columns {
				names[c] = col.Name
				if col.PrimaryKey {
					names[c] += "*"
				}
				rules[c] = strings.Repeat("-", len(names[c]))
			}
			fmt.Fprintln(w, strings.Join(names, "\t"))
			fmt.Fprintln(w, strings.Join(rules, "\t"))
			for _, row := range t.Rows {
				cells := make([]string, len(row))
				for c, v := range row {
					cells[c] = cellText(v)
				}
				fmt.Fprintln(w, strings.Join(cells, "\t"))
			}
		}
		writeDiagnostics(w, listing.Diagnostics)
		return nil
	})
}

func writeDiagnostics(w *tabwriter.Writer, diagnostics []msi.Diagnostic) {
	if len(diagnostics) == 0 {
		return
	}
	sorted := append([]msi.Diagnostic(nil), diagnostics...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	fmt.Fprintln(w)
	fmt.Fprintf(w, "SCOPE\tNAME\tREASON\n")
	for _, d := range sorted {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Scope, d.Name, d.Reason)
	}
}

// cellText renders a cell on one line; nulls print as empty
func cellText(v msi.Value) string {
	s := v.String()
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\t", " ")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
