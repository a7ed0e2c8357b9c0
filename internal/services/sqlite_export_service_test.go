package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-msi/internal/types"
)

func TestSQLiteExport(t *testing.T) {
	tables := []*types.Table{
		{
			Name: "Property",
			Columns: []types.ColumnDefinition{
				{Name: "Property", Type: types.ColumnTypeString, PrimaryKey: true},
				{Name: "Value", Type: types.ColumnTypeString},
			},
			Rows: []types.Row{
				{types.StringValue("ProductName"), types.StringValue("Example")},
				{types.StringValue("ProductLanguage"), types.StringValue("1033")},
			},
		},
		{
			Name: "Order",
			Columns: []types.ColumnDefinition{
				{Name: "Action", Type: types.ColumnTypeString},
				{Name: "Sequence", Type: types.ColumnTypeInt16},
				{Name: "Data", Type: types.ColumnTypeBinary},
			},
			Rows: []types.Row{
				{types.StringValue("Install"), types.IntValue(-5), types.StreamValue("Order.Install", 1)},
				{types.StringValue("Skip"), types.NullValue(), types.NullValue()},
			},
		},
		{Name: "Empty", Columns: []types.ColumnDefinition{{Name: "Key", Type: types.ColumnTypeInt32}}},
	}

	path := filepath.Join(t.TempDir(), "out.db")
	exported, err := NewSQLiteExporter(nil).Export(context.Background(), path, tables)
	require.NoError(t, err)
	assert.Equal(t, []ExportedTable{{"Property", 2}, {"Order", 2}, {"Empty", 0}}, exported)

	db, err := sql.Open(sqliteDriver, path)
	require.NoError(t, err)
	defer db.Close()

	var value string
	require.NoError(t, db.QueryRow(`SELECT Value FROM Property WHERE Property = 'ProductName'`).Scan(&value))
	assert.Equal(t, "Example", value)

	var seq sql.NullInt64
	var data sql.NullString
	require.NoError(t, db.QueryRow(`SELECT Sequence, Data FROM "Order" WHERE Action = 'Install'`).Scan(&seq, &data))
	assert.Equal(t, int64(-5), seq.Int64)
	assert.Equal(t, "Order.Install", data.String)

	require.NoError(t, db.QueryRow(`SELECT Sequence, Data FROM "Order" WHERE Action = 'Skip'`).Scan(&seq, &data))
	assert.False(t, seq.Valid)
	assert.False(t, data.Valid)

	_, err = NewSQLiteExporter(nil).Export(context.Background(), path, tables)
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"Order"`, quoteIdent("Order"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
