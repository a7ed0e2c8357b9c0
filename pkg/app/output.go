package app

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// ValidateFormat rejects unknown output formats
func ValidateFormat(format string) error {
	switch format {
	case FormatJSON, FormatYAML, FormatTable:
		return nil
	}
	return NewError(ErrCodeInvalidInput, fmt.Sprintf("unsupported output format: %s (use json, yaml or table)", format), nil)
}

// Render writes v to the context's output in its format. table draws the human
// readable form; it may be nil when v has no table rendering, in which case YAML is used.
func Render(ctx *Context, v interface{}, table func(w *tabwriter.Writer) error) error {
	switch ctx.OutputFormat {
	case FormatJSON:
		return writeJSON(ctx.Out, v, ctx.Pretty)
	case FormatYAML:
		return writeYAML(ctx.Out, v)
	case FormatTable:
		if table == nil {
			return writeYAML(ctx.Out, v)
		}
		w := tabwriter.NewWriter(ctx.Out, 0, 0, 2, ' ', 0)
		if err := table(w); err != nil {
			return err
		}
		return w.Flush()
	default:
		return ValidateFormat(ctx.OutputFormat)
	}
}

// writeJSON formats v as compact JSON, or indented when pretty
func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// writeYAML formats v as YAML
func writeYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(v)
}

// FormatBytes formats byte count as human readable, in binary units
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return humanize.IBytes(uint64(bytes))
}

// ParseBytes reads a size such as "512MiB", "20 MB" or "1048576"
func ParseBytes(size string) (int64, error) {
	n, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, NewError(ErrCodeInvalidInput, fmt.Sprintf("invalid size %q", size), err)
	}
	if n > 1<<62 {
		return 0, NewError(ErrCodeInvalidInput, fmt.Sprintf("size %q is too large", size), nil)
	}
	return int64(n), nil
}
