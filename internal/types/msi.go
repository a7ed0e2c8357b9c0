package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Windows Installer database streams and column bitfield layout.

// Well-known stream names, decoded (without the table prefix).
const (
	StringPoolTable = "_StringPool"
	StringDataTable = "_StringData"
	TablesTable     = "_Tables"
	ColumnsTable    = "_Columns"
	ValidationTable = "_Validation"

	SummaryInformationStream    = "\u0005SummaryInformation"
	DigitalSignatureStream      = "\u0005DigitalSignature"
	MsiDigitalSignatureExStream = "\u0005MsiDigitalSignatureEx"
)

// Column type bits as stored in the Type column of _Columns.
const (
	ColumnFieldSizeMask  uint16 = 0x00FF
	ColumnValidBit       uint16 = 0x0100
	ColumnLocalizableBit uint16 = 0x0200
	ColumnNonBinaryBit   uint16 = 0x0400
	ColumnStringBit      uint16 = 0x0800
	ColumnNullableBit    uint16 = 0x1000
	ColumnPrimaryKeyBit  uint16 = 0x2000
	ColumnTemporaryBit   uint16 = 0x4000
)

// Integer cells are stored biased so that zero encodes null.
const (
	Int16Bias uint32 = 0x8000
	Int32Bias uint32 = 0x80000000
)

// LongStringRefsBit in the _StringPool header selects 3 byte string references.
const LongStringRefsBit uint32 = 0x80000000

// ColumnType is the storage category of a column.
type ColumnType uint8

const (
	ColumnTypeInt16 ColumnType = iota
	ColumnTypeInt32
	ColumnTypeString
	ColumnTypeBinary
)

// String returns the name of the column type.
func (t ColumnType) String() string {
	switch t {
	case ColumnTypeInt16:
		return "int16"
	case ColumnTypeInt32:
		return "int32"
	case ColumnTypeString:
		return "string"
	case ColumnTypeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// MarshalText renders the column type by name.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ColumnDefinition describes one column of a table as recovered from _Columns.
type ColumnDefinition struct {
	Table       string     `json:"-" yaml:"-"`
	Name        string     `json:"name" yaml:"name"`
	Number      int        `json:"number" yaml:"number"`
	Type        ColumnType `json:"type" yaml:"type"`
	TypeBits    uint16     `json:"type_bits" yaml:"type_bits"`
	MaxLength   int        `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Width       int        `json:"width" yaml:"width"`
	Nullable    bool       `json:"nullable" yaml:"nullable"`
	PrimaryKey  bool       `json:"primary_key" yaml:"primary_key"`
	Localizable bool       `json:"localizable,omitempty" yaml:"localizable,omitempty"`
}

// Code returns the column type in the notation used by exported .idt files,
// e.g. s72, L0, i2, I4, v0. Upper case marks a nullable column.
func (c ColumnDefinition) Code() string {
	var letter byte
	size := 0
	switch c.Type {
	case ColumnTypeInt16:
		letter, size = 'i', 2
	case ColumnTypeInt32:
		letter, size = 'i', 4
	case ColumnTypeString:
		letter, size = 's', c.MaxLength
		if c.Localizable {
			letter = 'l'
		}
	case ColumnTypeBinary:
		letter = 'v'
	}
	if c.Nullable {
		letter -= 'a' - 'A'
	}
	return string(letter) + strconv.Itoa(size)
}

// StoredWidth returns the number of bytes a cell of this column type occupies in a
// row stream.
func (t ColumnType) StoredWidth(longStringRefs bool) int {
	switch t {
	case ColumnTypeInt32:
		return 4
	case ColumnTypeString:
		if longStringRefs {
			return 3
		}
		return 2
	default:
		return 2
	}
}

// ValueKind distinguishes the variants of a cell value.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueInt
	ValueString
	ValueStream
)

// Value is a single decoded cell. Stream cells carry the name of the embedded stream
// holding the bytes plus the raw stored value; the bytes themselves are only read on
// request.
type Value struct {
	kind ValueKind
	num  int64
	str  string
}

// NullValue returns the null cell.
func NullValue() Value { return Value{} }

// IntValue returns an integer cell.
func IntValue(n int64) Value { return Value{kind: ValueInt, num: n} }

// StringValue returns a string cell.
func StringValue(s string) Value { return Value{kind: ValueString, str: s} }

// StreamValue returns a binary stream reference cell.
func StreamValue(streamName string, raw uint32) Value {
	return Value{kind: ValueStream, num: int64(raw), str: streamName}
}

// Kind returns the variant of the value.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == ValueNull }

// Int returns the integer payload, or the raw stored value for stream cells.
func (v Value) Int() int64 { return v.num }

// Str returns the string payload, or the referenced stream name for stream cells.
func (v Value) Str() string { return v.str }

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case ValueInt:
		return strconv.FormatInt(v.num, 10)
	case ValueString, ValueStream:
		return v.str
	default:
		return ""
	}
}

// Compare orders values null < integer < string; stream cells compare by name.
func (v Value) Compare(o Value) int {
	rank := func(k ValueKind) int {
		switch k {
		case ValueNull:
			return 0
		case ValueInt:
			return 1
		default:
			return 2
		}
	}
	if rv, ro := rank(v.kind), rank(o.kind); rv != ro {
		return rv - ro
	}
	switch v.kind {
	case ValueInt:
		switch {
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		}
		return 0
	case ValueString, ValueStream:
		switch {
		case v.str < o.str:
			return -1
		case v.str > o.str:
			return 1
		}
	}
	return 0
}

// MarshalJSON renders the cell as a JSON string, number or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueInt:
		return []byte(strconv.FormatInt(v.num, 10)), nil
	case ValueString, ValueStream:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML renders the cell as a YAML scalar.
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case ValueInt:
		return v.num, nil
	case ValueString, ValueStream:
		return v.str, nil
	default:
		return nil, nil
	}
}

// Row is one decoded record, one value per column in schema order.
type Row []Value

// Table is a decoded table: its schema and rows.
type Table struct {
	Name    string             `json:"name" yaml:"name"`
	Columns []ColumnDefinition `json:"columns" yaml:"columns"`
	Rows    []Row              `json:"rows" yaml:"rows"`
}

// Clone returns a deep copy sharing no slices with t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := &Table{
		Name:    t.Name,
		Columns: append([]ColumnDefinition(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = append(Row(nil), row...)
	}
	return c
}

// PrimaryKeys returns the indexes of the primary key columns in schema order.
func (t *Table) PrimaryKeys() []int {
	var keys []int
	for i, c := range t.Columns {
		if c.PrimaryKey {
			keys = append(keys, i)
		}
	}
	return keys
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// RowWidth returns the number of bytes one record occupies in the row stream.
func RowWidth(columns []ColumnDefinition) int {
	width := 0
	for _, c := range columns {
		width += c.Width
	}
	return width
}

// TableResult is the outcome of decoding one table: rows on success, a reason otherwise.
type TableResult struct {
	Name  string
	Table *Table
	Err   error
}

// OK reports whether the table decoded.
func (r TableResult) OK() bool {
	return r.Err == nil && r.Table != nil
}

// StringPoolEntry is one interned string. Its position in the pool is its id.
type StringPoolEntry struct {
	Value    string `json:"value"`
	RefCount uint32 `json:"ref_count"`
}

// StreamNameForRow builds the name under which a binary cell's bytes are stored:
// the table name followed by the row's primary key values, separated by dots.
func StreamNameForRow(table string, keys []Value) string {
	name := table
	for _, k := range keys {
		name += "." + k.String()
	}
	return name
}

// ColumnError describes a column definition that cannot be decoded.
type ColumnError struct {
	Table  string
	Column string
	Bits   uint16
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("table %s column %s: unsupported column type 0x%04x", e.Table, e.Column, e.Bits)
}
