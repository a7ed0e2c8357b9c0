package tables

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/deploymenttheory/go-msi/internal/interfaces"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// DecodeRows decodes a column-major row stream. Each column's cells are stored
// contiguously for all rows, columns following one another in schema order, so the
// row count comes from the stream length before cells are transposed into rows.
// Rows are returned ordered by primary key, stably, with on-disk order kept otherwise.
func DecodeRows(table string, columns []types.ColumnDefinition, data []byte, pool interfaces.StringPoolReader) ([]types.Row, error) {
	width := types.RowWidth(columns)
	if width == 0 {
		if len(data) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: table %s has no columns but %d bytes of rows", types.ErrColumnWidthMismatch, table, len(data))
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("%w: table %s stream is %d bytes, not a multiple of row width %d", types.ErrColumnWidthMismatch, table, len(data), width)
	}

	count := len(data) / width
	rows := make([]types.Row, count)
	cells := make([]types.Value, count*len(columns))
	for r := range rows {
		rows[r] = cells[r*len(columns) : (r+1)*len(columns) : (r+1)*len(columns)]
	}

	off := 0
	for c, col := range columns {
		for r := 0; r < count; r++ {
			start := off + r*col.Width
			v, err := decodeCell(col, data[start:start+col.Width], pool)
			if err != nil {
				return nil, fmt.Errorf("table %s row %d column %s: %w", table, r+1, col.Name, err)
			}
			rows[r][c] = v
		}
		off += count * col.Width
	}

	keys := primaryKeys(columns)
	nameBinaryCells(table, columns, keys, rows)
	sortRows(rows, keys)
	return rows, nil
}

// decodeCell converts one stored cell. Integers are biased so zero stays null.
func decodeCell(col types.ColumnDefinition, cell []byte, pool interfaces.StringPoolReader) (types.Value, error) {
	switch col.Type {
	case types.ColumnTypeInt16:
		raw := binary.LittleEndian.Uint16(cell)
		if raw == 0 {
			return types.NullValue(), nil
		}
		return types.IntValue(int64(raw) - int64(types.Int16Bias)), nil

	case types.ColumnTypeInt32:
		raw := binary.LittleEndian.Uint32(cell)
		if raw == 0 {
			return types.NullValue(), nil
		}
		return types.IntValue(int64(raw) - int64(types.Int32Bias)), nil

	case types.ColumnTypeString:
		id := uint32(cell[0]) | uint32(cell[1])<<8
		if len(cell) == 3 {
			id |= uint32(cell[2]) << 16
		}
		s, null, err := pool.Lookup(id)
		if err != nil {
			return types.NullValue(), err
		}
		if null {
			return types.NullValue(), nil
		}
		return types.StringValue(s), nil

	case types.ColumnTypeBinary:
		raw := binary.LittleEndian.Uint16(cell)
		if raw == 0 {
			return types.NullValue(), nil
		}
		return types.StreamValue("", uint32(raw)), nil
	}
	return types.NullValue(), fmt.Errorf("unsupported column type %s", col.Type)
}

// primaryKeys returns the indexes of key columns in schema order
func primaryKeys(columns []types.ColumnDefinition) []int {
	var keys []int
	for i, c := range columns {
		if c.PrimaryKey {
			keys = append(keys, i)
		}
	}
	return keys
}

// nameBinaryCells gives every non-null binary cell the name of the stream holding its
// bytes, built from the table name and the row's key values
func nameBinaryCells(table string, columns []types.ColumnDefinition, keys []int, rows []types.Row) {
	for c, col := range columns {
		if col.Type != types.ColumnTypeBinary {
			continue
		}
		for _, row := range rows {
			if row[c].IsNull() {
				continue
			}
			values := make([]types.Value, len(keys))
			for i, k := range keys {
				values[i] = row[k]
			}
			row[c] = types.StreamValue(types.StreamNameForRow(table, values), uint32(row[c].Int()))
		}
	}
}

// sortRows orders rows by key columns, null before integers before strings
func sortRows(rows []types.Row, keys []int) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			if c := rows[i][k].Compare(rows[j][k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}
