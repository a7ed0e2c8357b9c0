package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure Go driver registered as "sqlite"

	"github.com/deploymenttheory/go-msi/internal/logging"
	"github.com/deploymenttheory/go-msi/internal/types"
)

const sqliteDriver = "sqlite"

// ExportedTable reports how one table was written
type ExportedTable struct {
	Name string `json:"name" yaml:"name"`
	Rows int    `json:"rows" yaml:"rows"`
}

// SQLiteExporter writes decoded installer tables into a SQLite database, one SQL table
// per installer table, so installation logic can be queried with plain SQL.
type SQLiteExporter struct {
	logger logrus.FieldLogger
}

// NewSQLiteExporter creates an exporter
func NewSQLiteExporter(logger logrus.FieldLogger) *SQLiteExporter {
	return &SQLiteExporter{logger: logging.OrDiscard(logger)}
}

// Export creates a new database at path and fills it in one transaction. An existing
// file is never overwritten.
func (se *SQLiteExporter) Export(ctx context.Context, path string, tables []*types.Table) ([]ExportedTable, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("refusing to overwrite existing file %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to check %s: %w", path, err)
	}

	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	exported := make([]ExportedTable, 0, len(tables))
	for _, table := range tables {
		if err := se.exportTable(ctx, tx, table); err != nil {
			return nil, err
		}
		se.logger.WithFields(logrus.Fields{"table": table.Name, "rows": len(table.Rows)}).Debug("exported table")
		exported = append(exported, ExportedTable{Name: table.Name, Rows: len(table.Rows)})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit export: %w", err)
	}
	return exported, nil
}

func (se *SQLiteExporter) exportTable(ctx context.Context, tx *sql.Tx, table *types.Table) error {
	if len(table.Columns) == 0 {
		return nil
	}

	defs := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		defs[i] = quoteIdent(col.Name) + " " + sqliteType(col.Type)
		placeholders[i] = "?"
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table.Name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table.Name, err)
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table.Name), strings.Join(placeholders, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", table.Name, err)
	}
	defer insert.Close()

	args := make([]interface{}, len(table.Columns))
	for r, row := range table.Rows {
		for i, v := range row {
			args[i] = sqliteValue(v)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d of %s: %w", r+1, table.Name, err)
		}
	}
	return nil
}

// sqliteType maps a column type to a SQLite storage class. Binary columns hold the
// name of the stream carrying the bytes.
func sqliteType(t types.ColumnType) string {
	switch t {
	case types.ColumnTypeInt16, types.ColumnTypeInt32:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func sqliteValue(v types.Value) interface{} {
	switch v.Kind() {
	case types.ValueInt:
		return v.Int()
	case types.ValueString, types.ValueStream:
		return v.Str()
	default:
		return nil
	}
}

// quoteIdent quotes a table or column name; installer identifiers may collide with
// SQL keywords (Order, Action, Condition)
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
