package msi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-msi/internal/msitest"
	"github.com/deploymenttheory/go-msi/internal/parsers/streamname"
	"github.com/deploymenttheory/go-msi/internal/types"
)

var propertyTable = msitest.TableDef{
	Name: "Property",
	Columns: []msitest.Column{
		{Name: "Property", Type: msitest.Key | msitest.Str(72)},
		{Name: "Value", Type: msitest.Localize | msitest.Str(0)},
	},
	Rows: [][]interface{}{{"ProductName", "Example"}},
}

func fill(n int, seed byte) []byte {
	return bytes.Repeat([]byte{seed}, n)
}

func binaryTable(rows ...[]interface{}) msitest.TableDef {
	return msitest.TableDef{
		Name: "Binary",
		Columns: []msitest.Column{
			{Name: "Name", Type: msitest.Key | msitest.Str(72)},
			{Name: "Data", Type: msitest.Binary},
		},
		Rows: rows,
	}
}

func openDatabase(t *testing.T, db *msitest.Database) *Package {
	t.Helper()
	pkg, err := OpenBytes(db.Bytes())
	require.NoError(t, err)
	return pkg
}

func TestPropertyTableEndToEnd(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable))

	listing := pkg.Tables()
	assert.Empty(t, listing.Diagnostics)
	require.Len(t, listing.Tables, 1)
	table := listing.Tables[0]
	assert.Equal(t, "Property", table.Name)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "ProductName", table.Rows[0][0].Str())
	assert.Equal(t, "Example", table.Rows[0][1].Str())

	out, err := json.Marshal(table.Rows)
	require.NoError(t, err)
	assert.JSONEq(t, `[["ProductName","Example"]]`, string(out))
}

func TestTablesAreIdempotent(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable).AddTable(binaryTable(
		[]interface{}{"Foo", fill(10, 1)},
	)))

	first, err := json.Marshal(pkg.Tables())
	require.NoError(t, err)
	second, err := json.Marshal(pkg.Tables())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestTablesAreCopiedOut(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable))

	first := pkg.Tables()
	require.Len(t, first.Tables, 1)
	first.Tables[0].Rows[0][1] = types.StringValue("Tampered")
	first.Tables[0].Rows = append(first.Tables[0].Rows, types.Row{types.StringValue("Extra"), types.NullValue()})
	first.Tables[0].Columns[0].Name = "Renamed"
	first.Tables[0] = nil

	second := pkg.Tables()
	require.Len(t, second.Tables, 1)
	table := second.Tables[0]
	require.NotNil(t, table)
	assert.Equal(t, "Property", table.Columns[0].Name)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Example", table.Rows[0][1].Str())
}

func TestUnsignedPackage(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable))
	dir := t.TempDir()

	report, err := pkg.ExtractCertificate(dir)
	require.NoError(t, err)
	assert.Equal(t, types.SignatureAbsent, report.Signature)
	assert.Empty(t, report.Streams)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	meta, err := pkg.Metadata()
	require.NoError(t, err)
	assert.False(t, meta.IsSigned)
}

func TestSignedPackage(t *testing.T) {
	blob := append([]byte{0x30, 0x82}, fill(300, 7)...)
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable).SetSignature(blob, []byte{1, 2, 3}))
	dir := t.TempDir()

	report, err := pkg.ExtractCertificate(dir)
	require.NoError(t, err)
	assert.Equal(t, types.SignaturePresent, report.Signature)
	require.Len(t, report.Streams, 2)

	got, err := os.ReadFile(filepath.Join(dir, "DigitalSignature"))
	require.NoError(t, err)
	assert.Equal(t, blob, got)
	got, err = os.ReadFile(filepath.Join(dir, "MsiDigitalSignatureEx"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	meta, err := pkg.Metadata()
	require.NoError(t, err)
	assert.True(t, meta.IsSigned)

	streams := pkg.Streams(StreamOptions{})
	for _, s := range streams.Streams {
		assert.NotEqual(t, types.DigitalSignatureStream, s.Name)
	}
}

func TestTruncatedSignature(t *testing.T) {
	blob := append([]byte{0x30, 0x82}, fill(8190, 7)...)
	img := msitest.NewDatabase().
		AddTable(propertyTable).
		SetSummaryInformation(msitest.SummaryInformation(
			msitest.Property{ID: types.PIDTemplate, Type: types.VTLPSTR, Value: "x64;1033"},
		)).
		SetSignature(blob, nil).
		Build()
	start, ok := img.StreamStart(types.DigitalSignatureStream)
	require.True(t, ok)
	require.False(t, img.InMiniStream(types.DigitalSignatureStream))
	img.SetFAT(start+3, types.EndOfChain)

	pkg, err := OpenBytes(img.Data)
	require.NoError(t, err)

	meta, err := pkg.Metadata()
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.True(t, meta.IsSigned)
	assert.Equal(t, "x64", meta.Architecture)
	var streamDiags []types.Diagnostic
	for _, d := range meta.Diagnostics {
		if d.Scope == types.ScopeStream {
			streamDiags = append(streamDiags, d)
		}
	}
	require.Len(t, streamDiags, 1)
	assert.Equal(t, types.DigitalSignatureStream, streamDiags[0].Name)
	assert.ErrorIs(t, streamDiags[0], ErrTruncatedStream)

	sig, err := pkg.Certificate()
	require.NoError(t, err)
	assert.Equal(t, types.SignaturePresent, sig.Status)
	assert.Equal(t, blob[:4*512], sig.Blob)

	dir := t.TempDir()
	report, err := pkg.ExtractCertificate(dir)
	require.NoError(t, err)
	assert.Equal(t, types.SignaturePresent, report.Signature)
	require.Len(t, report.Streams, 1)
	assert.Equal(t, types.ExtractTruncated, report.Streams[0].Status)
	assert.Equal(t, 4*512, report.Streams[0].Size)

	got, err := os.ReadFile(filepath.Join(dir, "DigitalSignature"))
	require.NoError(t, err)
	assert.Equal(t, blob[:4*512], got)
}

func TestExtractAll(t *testing.T) {
	foo, bar := fill(1024, 'f'), fill(2048, 'b')
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable).AddTable(binaryTable(
		[]interface{}{"Foo", foo},
		[]interface{}{"Bar", bar},
	)))
	dir := filepath.Join(t.TempDir(), "out")

	report, err := pkg.ExtractAll(dir)
	require.NoError(t, err)
	require.Len(t, report.Streams, 2)
	for _, s := range report.Streams {
		assert.Equal(t, types.ExtractWritten, s.Status)
		assert.Contains(t, s.Digest, "sha256:")
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got, err := os.ReadFile(filepath.Join(dir, "Binary.Foo"))
	require.NoError(t, err)
	assert.Equal(t, foo, got)
	got, err = os.ReadFile(filepath.Join(dir, "Binary.Bar"))
	require.NoError(t, err)
	assert.Equal(t, bar, got)
}

func TestExtractSingleStream(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddStream("Icon.app", fill(40, 9)))
	dir := t.TempDir()

	result, err := pkg.Extract("Icon.app", dir)
	require.NoError(t, err)
	assert.Equal(t, types.ExtractWritten, result.Status)
	assert.Equal(t, 40, result.Size)
	assert.Equal(t, filepath.Join(dir, "Icon.app"), result.Path)

	result, err = pkg.Extract("Icon.missing", dir)
	assert.ErrorIs(t, err, ErrStreamNotFound)
	assert.Equal(t, types.ExtractFailed, result.Status)
}

func TestExtractTruncatedStream(t *testing.T) {
	db := msitest.NewDatabase().AddStream("Binary.Big", fill(8192, 3))
	img := db.Build()
	start, ok := img.StreamStart(streamname.Encode("Binary.Big", false))
	require.True(t, ok)
	require.False(t, img.InMiniStream(streamname.Encode("Binary.Big", false)))
	img.SetFAT(start+3, types.EndOfChain)

	pkg, err := OpenBytes(img.Data)
	require.NoError(t, err)

	data, err := pkg.ReadStream("Binary.Big")
	assert.ErrorIs(t, err, ErrTruncatedStream)
	assert.Len(t, data, 4*512)

	result, err := pkg.Extract("Binary.Big", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, types.ExtractTruncated, result.Status)
	assert.Equal(t, 4*512, result.Size)
	assert.NotEmpty(t, result.Error)
}

func TestBinaryStream(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(binaryTable(
		[]interface{}{"Foo", fill(100, 'x')},
	)))

	data, err := pkg.BinaryStream("Binary", 0, "Data")
	require.NoError(t, err)
	assert.Equal(t, fill(100, 'x'), data)

	_, err = pkg.BinaryStream("Binary", 0, "Name")
	assert.Error(t, err)
	_, err = pkg.BinaryStream("Binary", 5, "Data")
	assert.Error(t, err)
	_, err = pkg.BinaryStream("Binary", 0, "Nope")
	assert.Error(t, err)
}

func TestMetadata(t *testing.T) {
	created := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable).SetSummaryInformation(msitest.SummaryInformation(
		msitest.Property{ID: types.PIDCodepage, Type: types.VTI2, Value: int16(1252)},
		msitest.Property{ID: types.PIDTitle, Type: types.VTLPSTR, Value: "Installation Database"},
		msitest.Property{ID: types.PIDTemplate, Type: types.VTLPSTR, Value: "x64;1033"},
		msitest.Property{ID: types.PIDRevNumber, Type: types.VTLPSTR, Value: "{0C9E6E9E-5C1C-4E5B-9F3E-7B4F0B6C2A11}"},
		msitest.Property{ID: types.PIDCreateDTM, Type: types.VTFiletime, Value: created},
		msitest.Property{ID: types.PIDWordCount, Type: types.VTI4, Value: int32(2)},
		msitest.Property{ID: 77, Type: 0x0048, Value: fill(16, 1)},
	)))

	meta, err := pkg.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "Installation Database", meta.Title)
	assert.Equal(t, "x64", meta.Architecture)
	assert.Equal(t, []int{1033}, meta.Languages)
	assert.Len(t, meta.Properties, 7)

	out, err := json.Marshal(meta)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "0c9e6e9e-5c1c-4e5b-9f3e-7b4f0b6c2a11", decoded["uuid"])
	assert.Equal(t, "x64", decoded["arch"])
	assert.Equal(t, false, decoded["is_signed"])
	assert.Equal(t, float64(1252), decoded["codepage"])
	assert.Contains(t, decoded, "properties")
}

func TestMetadataWithoutSummary(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable))
	meta, err := pkg.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 1252, meta.Codepage)
	assert.Empty(t, meta.Title)
	assert.NotNil(t, meta.Properties)
}

func TestStreams(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().
		AddTable(propertyTable).
		AddStream("Binary.Cab", append([]byte("MSCF"), fill(60, 0)...)).
		SetSummaryInformation(msitest.SummaryInformation()))

	embedded := pkg.Streams(StreamOptions{})
	require.Len(t, embedded.Streams, 1)
	assert.Equal(t, "Binary.Cab", embedded.Streams[0].Name)
	assert.Equal(t, uint64(64), embedded.Streams[0].Size)
	assert.Empty(t, embedded.Streams[0].Digest)

	all := pkg.Streams(StreamOptions{All: true, Digests: true, Identify: true})
	kinds := map[types.StreamKind]int{}
	for _, s := range all.Streams {
		kinds[s.Kind]++
		assert.Contains(t, s.Digest, "sha256:")
		assert.Len(t, s.BLAKE3, 64)
	}
	assert.Equal(t, 1, kinds[types.StreamKindEmbedded])
	assert.Equal(t, 1, kinds[types.StreamKindSystem])
	// _StringPool, _StringData, _Tables, _Columns and Property
	assert.Equal(t, 5, kinds[types.StreamKindTable])

	for _, s := range all.Streams {
		if s.Name == "Binary.Cab" {
			assert.Equal(t, "application/vnd.ms-cab-compressed", s.ContentType)
			assert.Equal(t, "archive", s.Group)
		}
	}
}

func TestCorruptStringPoolKeepsStreams(t *testing.T) {
	db := msitest.NewDatabase().AddTable(propertyTable).AddStream("Binary.Foo", fill(10, 1))
	db.OverrideTableStream(types.StringPoolTable, []byte{1, 2})
	pkg := openDatabase(t, db)

	listing := pkg.Tables()
	assert.Empty(t, listing.Tables)
	require.Len(t, listing.Diagnostics, 1)
	assert.ErrorIs(t, listing.Diagnostics[0], ErrStringPoolCorrupt)

	_, err := pkg.Table("Property")
	assert.ErrorIs(t, err, ErrStringPoolCorrupt)

	assert.Len(t, pkg.Streams(StreamOptions{}).Streams, 1)
	assert.NotEmpty(t, pkg.Diagnostics())
}

func TestBrokenTableIsIsolated(t *testing.T) {
	db := msitest.NewDatabase().AddTable(propertyTable).AddTable(msitest.TableDef{
		Name:    "Broken",
		Columns: []msitest.Column{{Name: "Key", Type: msitest.Key | msitest.I4}},
		Rows:    [][]interface{}{{1}},
	})
	db.OverrideTableStream("Broken", []byte{1, 2, 3})
	pkg := openDatabase(t, db)

	listing := pkg.Tables()
	require.Len(t, listing.Tables, 1)
	assert.Equal(t, "Property", listing.Tables[0].Name)
	require.Len(t, listing.Diagnostics, 1)
	assert.Equal(t, "Broken", listing.Diagnostics[0].Name)
	assert.ErrorIs(t, listing.Diagnostics[0], ErrColumnWidthMismatch)
}

func TestTablesNamed(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable))
	listing := pkg.TablesNamed(context.Background(), "_Tables", "Property", "Missing")
	require.Len(t, listing.Tables, 2)
	assert.Equal(t, "_Tables", listing.Tables[0].Name)
	require.Len(t, listing.Diagnostics, 1)
	assert.ErrorIs(t, listing.Diagnostics[0], ErrStreamNotFound)
}

func TestOpenRejectsNonCompoundFile(t *testing.T) {
	_, err := OpenBytes([]byte("definitely not an installer"))
	assert.ErrorIs(t, err, ErrMalformedContainer)
}

func TestOpenHonoursMaxFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.msi")
	require.NoError(t, os.WriteFile(path, msitest.NewDatabase().AddTable(propertyTable).Bytes(), 0644))

	_, err := Open(path, WithMaxFileSize(100))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	pkg, err := Open(path, WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"Property"}, pkg.TableNames())
	assert.Equal(t, 1252, pkg.Codepage())
}

func TestExportSQLite(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(propertyTable))
	path := filepath.Join(t.TempDir(), "pkg.db")

	report, err := pkg.ExportSQLite(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []ExportedTable{{Name: "Property", Rows: 1}}, report.Tables)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var value string
	require.NoError(t, db.QueryRow(`SELECT Value FROM Property WHERE Property = 'ProductName'`).Scan(&value))
	assert.Equal(t, "Example", value)
}

func TestExtractArchive(t *testing.T) {
	pkg := openDatabase(t, msitest.NewDatabase().AddTable(binaryTable(
		[]interface{}{"Foo", fill(1024, 'f')},
		[]interface{}{"Bar", fill(2048, 'b')},
	)))
	path := filepath.Join(t.TempDir(), "streams.tar.zst")

	report, err := pkg.ExtractArchive(path)
	require.NoError(t, err)
	require.Len(t, report.Streams, 2)
	sizes := map[string]int{}
	for _, s := range report.Streams {
		assert.Equal(t, types.ExtractWritten, s.Status)
		sizes[s.Path] = s.Size
	}
	assert.Equal(t, map[string]int{"Binary.Foo": 1024, "Binary.Bar": 2048}, sizes)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
