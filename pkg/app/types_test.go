package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"text/tabwriter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-msi/pkg/msi"
)

func TestPackageTarget_Validate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pkg.msi")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name    string
		target  PackageTarget
		errCode string
	}{
		{name: "existing file", target: PackageTarget{Path: file}},
		{name: "empty path", target: PackageTarget{}, errCode: ErrCodeInvalidInput},
		{name: "missing file", target: PackageTarget{Path: filepath.Join(dir, "nope.msi")}, errCode: ErrCodeContainerAccess},
		{name: "directory", target: PackageTarget{Path: dir}, errCode: ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.errCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errCode, ErrorCode(err))
		})
	}
}

func TestWrapEngineError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"malformed container", fmt.Errorf("bad header: %w", msi.ErrMalformedContainer), ErrCodeMalformedContainer},
		{"missing stream", msi.ErrStreamNotFound, ErrCodeStreamNotFound},
		{"truncated stream", msi.ErrTruncatedStream, ErrCodeTruncatedStream},
		{"no signature", msi.ErrNoSignaturePresent, ErrCodeNotPresent},
		{"too large", msi.ErrFileTooLarge, ErrCodeInvalidInput},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"anything else", errors.New("permission denied"), ErrCodeContainerAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapEngineError("failed", tt.err)
			assert.Equal(t, tt.code, ErrorCode(err))
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), "failed: ")
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapEngineError("failed", nil))
	})

	t.Run("common errors pass through", func(t *testing.T) {
		original := NewError(ErrCodeInvalidInput, "bad flag", nil)
		assert.Same(t, original, WrapEngineError("failed", original))
	})
}

func TestCommonError(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewError(ErrCodeContainerAccess, "cannot read", cause)
	assert.Equal(t, "cannot read: disk on fire", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad", NewError(ErrCodeInvalidInput, "bad", nil).Error())
	assert.Empty(t, ErrorCode(cause))
}

func TestRender(t *testing.T) {
	value := map[string]interface{}{"name": "Property", "rows": 1}
	table := func(w *tabwriter.Writer) error {
		_, err := fmt.Fprintf(w, "NAME\tROWS\nProperty\t1\n")
		return err
	}

	tests := []struct {
		name   string
		format string
		pretty bool
		table  func(w *tabwriter.Writer) error
		want   string
	}{
		{name: "compact json", format: FormatJSON, want: "{\"name\":\"Property\",\"rows\":1}\n"},
		{name: "pretty json", format: FormatJSON, pretty: true, want: "{\n  \"name\": \"Property\",\n  \"rows\": 1\n}\n"},
		{name: "yaml", format: FormatYAML, want: "name: Property\nrows: 1\n"},
		{name: "table", format: FormatTable, table: table, want: "NAME      ROWS\nProperty  1\n"},
		{name: "table without renderer", format: FormatTable, want: "name: Property\nrows: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			ctx := NewContext()
			ctx.Out = &out
			ctx.OutputFormat = tt.format
			ctx.Pretty = tt.pretty

			require.NoError(t, Render(ctx, value, tt.table))
			assert.Equal(t, tt.want, out.String())
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		ctx := NewContext()
		ctx.Out = &bytes.Buffer{}
		ctx.OutputFormat = "xml"
		err := Render(ctx, value, nil)
		assert.Equal(t, ErrCodeInvalidInput, ErrorCode(err))
	})
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(1536*1024))
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"512MiB", 512 << 20, true},
		{"1 KiB", 1024, true},
		{"20MB", 20_000_000, true},
		{"4096", 4096, true},
		{"lots", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBytes(tt.in)
			if !tt.ok {
				assert.Equal(t, ErrCodeInvalidInput, ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
