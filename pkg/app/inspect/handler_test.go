package inspect

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-msi/internal/msitest"
	"github.com/deploymenttheory/go-msi/internal/types"
	"github.com/deploymenttheory/go-msi/pkg/app"
	"github.com/deploymenttheory/go-msi/pkg/msi"
)

var propertyTable = msitest.TableDef{
	Name: "Property",
	Columns: []msitest.Column{
		{Name: "Property", Type: msitest.Key | msitest.Str(72)},
		{Name: "Value", Type: msitest.Localize | msitest.Str(0)},
	},
	Rows: [][]interface{}{{"ProductName", "Example"}, {"Manufacturer", "Acme"}},
}

func writePackage(t *testing.T, db *msitest.Database) app.PackageTarget {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pkg.msi")
	require.NoError(t, os.WriteFile(path, db.Bytes(), 0644))
	return app.PackageTarget{Path: path}
}

func newContext(format string) (*app.Context, *bytes.Buffer) {
	var out bytes.Buffer
	ctx := app.NewContext()
	ctx.Out = &out
	ctx.OutputFormat = format
	ctx.Quiet = true
	return ctx, &out
}

func TestHandleMetadata(t *testing.T) {
	target := writePackage(t, msitest.NewDatabase().AddTable(propertyTable).SetSummaryInformation(msitest.SummaryInformation(
		msitest.Property{ID: types.PIDCodepage, Type: types.VTI2, Value: int16(1252)},
		msitest.Property{ID: types.PIDSubject, Type: types.VTLPSTR, Value: "Example"},
		msitest.Property{ID: types.PIDTemplate, Type: types.VTLPSTR, Value: "Intel;1033"},
	)))
	ctx, out := newContext(app.FormatJSON)

	meta, err := HandleMetadata(ctx, &MetadataRequest{Target: target})
	require.NoError(t, err)
	assert.Equal(t, "Example", meta.Subject)
	assert.Equal(t, "Intel", meta.Architecture)
	assert.False(t, meta.IsSigned)

	require.NoError(t, FormatMetadata(ctx, meta))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "Example", decoded["subject"])
	assert.Equal(t, false, decoded["is_signed"])
	assert.Equal(t, []interface{}{"en-US"}, decoded["language_tags"])

	ctx, out = newContext(app.FormatTable)
	require.NoError(t, FormatMetadata(ctx, meta))
	assert.Contains(t, out.String(), "Architecture")
	assert.Contains(t, out.String(), "1252 (")
	assert.Contains(t, out.String(), "en-US")
}

func TestHandleMetadataErrors(t *testing.T) {
	ctx, _ := newContext(app.FormatJSON)

	_, err := HandleMetadata(ctx, &MetadataRequest{})
	assert.Equal(t, app.ErrCodeInvalidInput, app.ErrorCode(err))

	garbage := filepath.Join(t.TempDir(), "garbage.msi")
	require.NoError(t, os.WriteFile(garbage, bytes.Repeat([]byte("not a compound file "), 40), 0644))
	_, err = HandleMetadata(ctx, &MetadataRequest{Target: app.PackageTarget{Path: garbage}})
	assert.Equal(t, app.ErrCodeMalformedContainer, app.ErrorCode(err))
}

func TestHandleStreams(t *testing.T) {
	target := writePackage(t, msitest.NewDatabase().AddTable(propertyTable).AddStream("Binary.Setup", []byte("MZ")))

	tests := []struct {
		name    string
		request StreamsRequest
		check   func(*testing.T, *msi.StreamListing)
	}{
		{
			name:    "embedded only",
			request: StreamsRequest{},
			check: func(t *testing.T, l *msi.StreamListing) {
				require.Len(t, l.Streams, 1)
				assert.Equal(t, "Binary.Setup", l.Streams[0].Name)
				assert.Empty(t, l.Streams[0].Digest)
			},
		},
		{
			name:    "all streams",
			request: StreamsRequest{All: true},
			check: func(t *testing.T, l *msi.StreamListing) {
				assert.Greater(t, len(l.Streams), 1)
			},
		},
		{
			name:    "digests and identification",
			request: StreamsRequest{Digests: true, Identify: true},
			check: func(t *testing.T, l *msi.StreamListing) {
				require.Len(t, l.Streams, 1)
				assert.Contains(t, l.Streams[0].Digest, "sha256:")
				assert.NotEmpty(t, l.Streams[0].ContentType)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := newContext(app.FormatJSON)
			req := tt.request
			req.Target = target
			listing, err := HandleStreams(ctx, &req)
			require.NoError(t, err)
			tt.check(t, listing)
		})
	}
}

func TestHandleTables(t *testing.T) {
	target := writePackage(t, msitest.NewDatabase().AddTable(propertyTable))

	t.Run("every table", func(t *testing.T) {
		ctx, out := newContext(app.FormatJSON)
		listing, err := HandleTables(ctx, &TablesRequest{Target: target})
		require.NoError(t, err)
		require.Len(t, listing.Tables, 1)

		require.NoError(t, FormatTables(ctx, listing))
		var decoded struct {
			Tables []struct {
				Name string          `json:"name"`
				Rows [][]interface{} `json:"rows"`
			} `json:"tables"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		require.Len(t, decoded.Tables, 1)
		assert.Equal(t, []interface{}{"Manufacturer", "Acme"}, decoded.Tables[0].Rows[0])
		assert.Equal(t, []interface{}{"ProductName", "Example"}, decoded.Tables[0].Rows[1])
	})

	t.Run("catalog included", func(t *testing.T) {
		ctx, _ := newContext(app.FormatJSON)
		listing, err := HandleTables(ctx, &TablesRequest{Target: target, IncludeMeta: true})
		require.NoError(t, err)
		names := make([]string, len(listing.Tables))
		for i, tbl := range listing.Tables {
			names[i] = tbl.Name
		}
		assert.Equal(t, []string{"_Tables", "_Columns", "Property"}, names)
	})

	t.Run("named tables", func(t *testing.T) {
		ctx, out := newContext(app.FormatTable)
		listing, err := HandleTables(ctx, &TablesRequest{Target: target, Tables: []string{"Property", "Missing"}})
		require.NoError(t, err)
		require.Len(t, listing.Tables, 1)
		require.Len(t, listing.Diagnostics, 1)
		assert.Equal(t, "Missing", listing.Diagnostics[0].Name)

		require.NoError(t, FormatTables(ctx, listing))
		assert.Contains(t, out.String(), "== Property (2 rows)")
		assert.Contains(t, out.String(), "Property*")
		assert.Contains(t, out.String(), "Missing")
	})

	t.Run("duplicate names", func(t *testing.T) {
		ctx, _ := newContext(app.FormatJSON)
		_, err := HandleTables(ctx, &TablesRequest{Target: target, Tables: []string{"Property", "Property"}})
		assert.Equal(t, app.ErrCodeInvalidInput, app.ErrorCode(err))
	})
}

func TestFormatStreamsTable(t *testing.T) {
	ctx, out := newContext(app.FormatTable)
	require.NoError(t, FormatStreams(ctx, &msi.StreamListing{}))
	assert.Contains(t, out.String(), "No streams found.")

	out.Reset()
	listing := &msi.StreamListing{Streams: []msi.StreamInfo{{ID: 3, Name: "Binary.Foo", Kind: msi.StreamKindEmbedded, Size: 2048}}}
	require.NoError(t, FormatStreams(ctx, listing))
	assert.Contains(t, out.String(), "Binary.Foo")
	assert.Contains(t, out.String(), "2.0 KiB")
}
