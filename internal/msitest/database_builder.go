package msitest

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/deploymenttheory/go-msi/internal/parsers/streamname"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Column type bit helpers for table definitions.
const (
	Key      = types.ColumnPrimaryKeyBit
	Nullable = types.ColumnNullableBit
	Localize = types.ColumnLocalizableBit

	I2     = types.ColumnValidBit | types.ColumnNonBinaryBit | 2
	I4     = types.ColumnValidBit | types.ColumnNonBinaryBit | 4
	Binary = types.ColumnValidBit | types.ColumnStringBit
)

// Str returns the type bits of a string column of the given maximum length.
func Str(width int) uint16 {
	return types.ColumnValidBit | types.ColumnNonBinaryBit | types.ColumnStringBit | uint16(width)
}

// Column is a column of a test table.
type Column struct {
	Name string
	Type uint16
}

// TableDef is a test table. Cells are nil, int, string, or []byte for binary columns;
// binary cells also become a <Table>.<keys> stream holding the bytes.
type TableDef struct {
	Name    string
	Columns []Column
	Rows    [][]interface{}
}

type rawStream struct {
	name string
	data []byte
}

// Database assembles an installer database on top of a Builder.
type Database struct {
	Codepage  uint32
	LongRefs  bool
	pool      *StringPool
	tables    []TableDef
	streams   []rawStream
	overrides map[string][]byte
	omitted   map[string]bool
}

// NewDatabase returns an empty database using code page 1252.
func NewDatabase() *Database {
	return &Database{
		Codepage:  1252,
		pool:      NewStringPool(),
		overrides: map[string][]byte{},
		omitted:   map[string]bool{},
	}
}

// AddTable appends a table definition.
func (d *Database) AddTable(def TableDef) *Database {
	d.tables = append(d.tables, def)
	return d
}

// AddStream adds an embedded stream under its installer name.
func (d *Database) AddStream(name string, data []byte) *Database {
	d.streams = append(d.streams, rawStream{name: streamname.Encode(name, false), data: data})
	return d
}

// AddRawStream adds a stream whose directory name is used verbatim.
func (d *Database) AddRawStream(name string, data []byte) *Database {
	d.streams = append(d.streams, rawStream{name: name, data: data})
	return d
}

// SetSummaryInformation stores a property set as \005SummaryInformation.
func (d *Database) SetSummaryInformation(data []byte) *Database {
	return d.AddRawStream(types.SummaryInformationStream, data)
}

// SetSignature stores the signature streams; ext may be nil.
func (d *Database) SetSignature(blob, ext []byte) *Database {
	d.AddRawStream(types.DigitalSignatureStream, blob)
	if ext != nil {
		d.AddRawStream(types.MsiDigitalSignatureExStream, ext)
	}
	return d
}

// OverrideTableStream replaces the row stream of a table (including _Tables, _Columns,
// _StringPool and _StringData) with raw bytes.
func (d *Database) OverrideTableStream(table string, data []byte) *Database {
	d.overrides[table] = data
	return d
}

// OmitTableStream leaves the row stream of a table out of the file.
func (d *Database) OmitTableStream(table string) *Database {
	d.omitted[table] = true
	return d
}

// Pool returns the string pool, populated once Build has run.
func (d *Database) Pool() *StringPool {
	return d.pool
}

// Bytes builds the database and returns the file bytes.
func (d *Database) Bytes() []byte {
	return d.Build().Data
}

// Build lays out the database and the compound file around it.
func (d *Database) Build() *Image {
	d.pool = NewStringPool()
	d.pool.Codepage = d.Codepage
	d.pool.LongRefs = d.LongRefs

	tableStreams := map[string][]byte{}
	var blobs []rawStream

	// intern names first so ids are stable regardless of row content
	for _, t := range d.tables {
		d.pool.Intern(t.Name)
		for _, c := range t.Columns {
			d.pool.Intern(c.Name)
		}
	}

	tablesCols := []types.ColumnDefinition{Definition("_Tables", Column{"Name", Key | Str(64)}, d.LongRefs)}
	var tablesRows []types.Row
	columnsCols := []types.ColumnDefinition{
		Definition("_Columns", Column{"Table", Key | Str(64)}, d.LongRefs),
		Definition("_Columns", Column{"Number", Key | I2}, d.LongRefs),
		Definition("_Columns", Column{"Name", Str(64)}, d.LongRefs),
		Definition("_Columns", Column{"Type", I2}, d.LongRefs),
	}
	var columnsRows []types.Row

	for _, t := range d.tables {
		tablesRows = append(tablesRows, types.Row{types.StringValue(t.Name)})
		defs := make([]types.ColumnDefinition, len(t.Columns))
		for i, c := range t.Columns {
			defs[i] = Definition(t.Name, c, d.LongRefs)
			columnsRows = append(columnsRows, types.Row{
				types.StringValue(t.Name),
				types.IntValue(int64(i + 1)),
				types.StringValue(c.Name),
				types.IntValue(int64(int16(c.Type))),
			})
		}

		rows := make([]types.Row, len(t.Rows))
		for r, cells := range t.Rows {
			row := make(types.Row, len(cells))
			var keys []types.Value
			for i, cell := range cells {
				row[i] = cellValue(cell)
				if defs[i].PrimaryKey {
					keys = append(keys, row[i])
				}
			}
			for i, cell := range cells {
				if blob, ok := cell.([]byte); ok {
					name := types.StreamNameForRow(t.Name, keys)
					row[i] = types.StreamValue(name, 1)
					blobs = append(blobs, rawStream{name: streamname.Encode(name, false), data: blob})
				}
			}
			rows[r] = row
		}
		if len(rows) > 0 {
			tableStreams[t.Name] = EncodeRows(defs, rows, d.pool.Intern)
		}
	}

	tableStreams["_Tables"] = EncodeRows(tablesCols, tablesRows, d.pool.Intern)
	tableStreams["_Columns"] = EncodeRows(columnsCols, columnsRows, d.pool.Intern)
	pool, data := d.pool.Encode()
	tableStreams["_StringPool"] = pool
	tableStreams["_StringData"] = data

	for name, raw := range d.overrides {
		tableStreams[name] = raw
	}

	names := make([]string, 0, len(tableStreams))
	for name := range tableStreams {
		if !d.omitted[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	b := NewBuilder()
	for _, name := range names {
		b.AddStream(streamname.Encode(name, true), tableStreams[name])
	}
	for _, s := range blobs {
		b.AddStream(s.name, s.data)
	}
	for _, s := range d.streams {
		b.AddStream(s.name, s.data)
	}
	return b.Build()
}

func cellValue(cell interface{}) types.Value {
	switch v := cell.(type) {
	case nil:
		return types.NullValue()
	case int:
		return types.IntValue(int64(v))
	case int64:
		return types.IntValue(v)
	case string:
		if v == "" {
			return types.NullValue()
		}
		return types.StringValue(v)
	case []byte:
		return types.NullValue()
	default:
		panic(fmt.Sprintf("msitest: unsupported cell %T", cell))
	}
}

// Definition resolves test column type bits into a column definition.
func Definition(table string, c Column, longRefs bool) types.ColumnDefinition {
	def := types.ColumnDefinition{
		Table:       table,
		Name:        c.Name,
		TypeBits:    c.Type,
		Nullable:    c.Type&types.ColumnNullableBit != 0,
		PrimaryKey:  c.Type&types.ColumnPrimaryKeyBit != 0,
		Localizable: c.Type&types.ColumnLocalizableBit != 0,
	}
	switch {
	case c.Type&types.ColumnStringBit != 0 && c.Type&types.ColumnNonBinaryBit != 0:
		def.Type = types.ColumnTypeString
		def.MaxLength = int(c.Type & types.ColumnFieldSizeMask)
	case c.Type&types.ColumnStringBit != 0:
		def.Type = types.ColumnTypeBinary
	case c.Type&types.ColumnFieldSizeMask == 4:
		def.Type = types.ColumnTypeInt32
	default:
		def.Type = types.ColumnTypeInt16
	}
	def.Width = def.Type.StoredWidth(longRefs)
	return def
}

// EncodeRows writes rows column by column, the inverse of the row decoder. intern maps
// a string to its pool id.
func EncodeRows(columns []types.ColumnDefinition, rows []types.Row, intern func(string) uint32) []byte {
	out := make([]byte, 0, types.RowWidth(columns)*len(rows))
	for i, c := range columns {
		for _, row := range rows {
			v := row[i]
			switch c.Type {
			case types.ColumnTypeInt16:
				var raw uint16
				if !v.IsNull() {
					raw = uint16(v.Int() + int64(types.Int16Bias))
				}
				out = binary.LittleEndian.AppendUint16(out, raw)
			case types.ColumnTypeInt32:
				var raw uint32
				if !v.IsNull() {
					raw = uint32(v.Int() + int64(types.Int32Bias))
				}
				out = binary.LittleEndian.AppendUint32(out, raw)
			case types.ColumnTypeString:
				var id uint32
				if !v.IsNull() {
					id = intern(v.Str())
				}
				out = append(out, byte(id), byte(id>>8))
				if c.Width == 3 {
					out = append(out, byte(id>>16))
				}
			case types.ColumnTypeBinary:
				var raw uint16
				if !v.IsNull() {
					raw = uint16(v.Int())
				}
				out = binary.LittleEndian.AppendUint16(out, raw)
			}
		}
	}
	return out
}

// StringPool interns strings and encodes _StringPool / _StringData.
type StringPool struct {
	Codepage uint32
	LongRefs bool
	strings  [][]byte
	refs     []uint32
	ids      map[string]uint32
}

// NewStringPool returns an empty pool.
func NewStringPool() *StringPool {
	return &StringPool{Codepage: 1252, ids: map[string]uint32{}}
}

// Intern returns the id of s, adding it on first use and counting the reference.
// The empty string is null and has id 0.
func (p *StringPool) Intern(s string) uint32 {
	if s == "" {
		return 0
	}
	if id, ok := p.ids[s]; ok {
		p.refs[id-1]++
		return id
	}
	p.strings = append(p.strings, []byte(s))
	p.refs = append(p.refs, 1)
	id := uint32(len(p.strings))
	p.ids[s] = id
	return id
}

// AddRaw appends an entry with raw code page bytes and returns its id.
func (p *StringPool) AddRaw(raw []byte, refs uint32) uint32 {
	p.strings = append(p.strings, raw)
	p.refs = append(p.refs, refs)
	return uint32(len(p.strings))
}

// ID returns the id of an interned string.
func (p *StringPool) ID(s string) uint32 {
	return p.ids[s]
}

// Encode writes the pool header and slots plus the concatenated string data. Strings of
// 64 KiB or more use the merged extended length escape.
func (p *StringPool) Encode() (pool, data []byte) {
	header := p.Codepage
	if p.LongRefs {
		header |= types.LongStringRefsBit
	}
	pool = binary.LittleEndian.AppendUint32(nil, header)
	for i, s := range p.strings {
		n := uint32(len(s))
		if n > 0xFFFF {
			pool = binary.LittleEndian.AppendUint16(pool, 0)
			pool = binary.LittleEndian.AppendUint16(pool, uint16(n>>16))
			pool = binary.LittleEndian.AppendUint16(pool, uint16(n))
			pool = binary.LittleEndian.AppendUint16(pool, uint16(p.refs[i]))
		} else {
			pool = binary.LittleEndian.AppendUint16(pool, uint16(n))
			pool = binary.LittleEndian.AppendUint16(pool, uint16(p.refs[i]))
		}
		data = append(data, s...)
	}
	return pool, data
}
