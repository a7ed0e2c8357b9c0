package tables

import (
	"github.com/deploymenttheory/go-msi/internal/types"
)

// ResolveColumn turns the type bits of a _Columns row into a column definition.
// The string bit with the non-binary bit is a string reference, the string bit alone a
// binary stream reference; otherwise the field size selects a 16 or 32 bit integer.
func ResolveColumn(table, name string, number int, bits uint16, longRefs bool) (types.ColumnDefinition, error) {
	def := types.ColumnDefinition{
		Table:       table,
		Name:        name,
		Number:      number,
		TypeBits:    bits,
		Nullable:    bits&types.ColumnNullableBit != 0,
		PrimaryKey:  bits&types.ColumnPrimaryKeyBit != 0,
		Localizable: bits&types.ColumnLocalizableBit != 0,
	}

	size := int(bits & types.ColumnFieldSizeMask)
	switch {
	case bits&types.ColumnStringBit != 0 && bits&types.ColumnNonBinaryBit != 0:
		def.Type = types.ColumnTypeString
		def.MaxLength = size
	case bits&types.ColumnStringBit != 0:
		def.Type = types.ColumnTypeBinary
	case size == 1 || size == 2:
		def.Type = types.ColumnTypeInt16
	case size == 4:
		def.Type = types.ColumnTypeInt32
	default:
		return def, &types.ColumnError{Table: table, Column: name, Bits: bits}
	}

	def.Width = def.Type.StoredWidth(longRefs)
	return def, nil
}

type columnLayout struct {
	name string
	bits uint16
}

const catalogString = types.ColumnValidBit | types.ColumnNonBinaryBit | types.ColumnStringBit | 64

// Catalog column layouts. Key bits are left off so stored row order is kept.
var (
	tablesLayout = []columnLayout{
		{"Name", catalogString},
	}

	columnsLayout = []columnLayout{
		{"Table", catalogString},
		{"Number", types.ColumnValidBit | types.ColumnNonBinaryBit | 2},
		{"Name", catalogString},
		{"Type", types.ColumnValidBit | types.ColumnNonBinaryBit | 2},
	}
)

// catalogColumns resolves one of the fixed catalog layouts
func catalogColumns(table string, layout []columnLayout, longRefs bool) []types.ColumnDefinition {
	defs := make([]types.ColumnDefinition, len(layout))
	for i, c := range layout {
		defs[i], _ = ResolveColumn(table, c.name, i+1, c.bits, longRefs)
	}
	return defs
}
