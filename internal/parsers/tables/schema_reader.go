// Package tables decodes the relational tables of an installer database: the _Tables
// and _Columns catalog and the column-major row stream of every table it lists.
package tables

import (
	"errors"
	"fmt"
	"sort"

	"github.com/deploymenttheory/go-msi/internal/interfaces"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Schema is the table catalog of a database.
type Schema struct {
	names    []string
	columns  map[string][]types.ColumnDefinition
	errs     map[string]error
	longRefs bool
}

var _ interfaces.SchemaReader = (*Schema)(nil)

// ReadSchema decodes _Tables and _Columns. A table whose column definitions cannot be
// resolved keeps its place in the catalog and carries the reason instead.
func ReadSchema(src interfaces.StreamSource, pool interfaces.StringPoolReader) (*Schema, error) {
	longRefs := pool.LongRefs()

	tablesData, err := src.TableStream(types.TablesTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", types.TablesTable, err)
	}
	tableRows, err := DecodeRows(types.TablesTable, catalogColumns(types.TablesTable, tablesLayout, longRefs), tablesData, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", types.TablesTable, err)
	}

	columnsData, err := src.TableStream(types.ColumnsTable)
	if err != nil && !errors.Is(err, types.ErrStreamNotFound) {
		return nil, fmt.Errorf("failed to read %s: %w", types.ColumnsTable, err)
	}
	columnRows, err := DecodeRows(types.ColumnsTable, catalogColumns(types.ColumnsTable, columnsLayout, longRefs), columnsData, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", types.ColumnsTable, err)
	}

	s := &Schema{
		columns:  make(map[string][]types.ColumnDefinition),
		errs:     make(map[string]error),
		longRefs: longRefs,
	}

	seen := make(map[string]bool)
	for i, row := range tableRows {
		if row[0].IsNull() {
			return nil, fmt.Errorf("%s row %d has a null table name", types.TablesTable, i+1)
		}
		name := row[0].Str()
		if seen[name] {
			continue
		}
		seen[name] = true
		s.names = append(s.names, name)
	}

	for i, row := range columnRows {
		table, number, name, bits := row[0], row[1], row[2], row[3]
		if table.IsNull() || !seen[table.Str()] {
			continue
		}
		if number.IsNull() || name.IsNull() || bits.IsNull() {
			s.fail(table.Str(), fmt.Errorf("%s row %d is incomplete", types.ColumnsTable, i+1))
			continue
		}
		def, err := ResolveColumn(table.Str(), name.Str(), int(number.Int()), uint16(bits.Int()), longRefs)
		if err != nil {
			s.fail(table.Str(), err)
			continue
		}
		s.columns[table.Str()] = append(s.columns[table.Str()], def)
	}

	for _, name := range s.names {
		defs := s.columns[name]
		sort.SliceStable(defs, func(i, j int) bool { return defs[i].Number < defs[j].Number })
		if len(defs) == 0 {
			s.fail(name, fmt.Errorf("table %s has no column definitions", name))
		}
	}

	return s, nil
}

func (s *Schema) fail(table string, err error) {
	if _, ok := s.errs[table]; !ok {
		s.errs[table] = err
	}
}

// TableNames returns the tables listed in _Tables in stored order
func (s *Schema) TableNames() []string {
	return append([]string(nil), s.names...)
}

// Columns returns the column definitions of a table in column number order
func (s *Schema) Columns(table string) ([]types.ColumnDefinition, bool) {
	defs, ok := s.columns[table]
	if !ok {
		return nil, false
	}
	return append([]types.ColumnDefinition(nil), defs...), true
}

// TableError returns the reason a table's schema could not be resolved, if any
func (s *Schema) TableError(table string) error {
	return s.errs[table]
}

// Has reports whether the catalog lists the table
func (s *Schema) Has(table string) bool {
	for _, n := range s.names {
		if n == table {
			return true
		}
	}
	return false
}

// CatalogColumns returns the fixed layout of _Tables or _Columns
func (s *Schema) CatalogColumns(table string) ([]types.ColumnDefinition, bool) {
	switch table {
	case types.TablesTable:
		return catalogColumns(table, tablesLayout, s.longRefs), true
	case types.ColumnsTable:
		return catalogColumns(table, columnsLayout, s.longRefs), true
	}
	return nil, false
}
