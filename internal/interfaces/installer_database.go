// File: internal/interfaces/installer_database.go
package interfaces

import (
	"github.com/deploymenttheory/go-msi/internal/types"
)

// StreamSource resolves installer stream names to their content
type StreamSource interface {
	// Stream returns the content of the named root stream (decoded name, no table prefix)
	Stream(name string) ([]byte, error)

	// TableStream returns the row stream of the named table
	TableStream(table string) ([]byte, error)
}

// StringPoolReader provides access to the interned strings of an installer database
type StringPoolReader interface {
	// Codepage returns the code page string data is encoded in
	Codepage() int

	// LongRefs reports whether string references are 3 bytes wide
	LongRefs() bool

	// Len returns the number of pool slots
	Len() int

	// Lookup returns the string with the given id; id 0 is null
	Lookup(id uint32) (string, bool, error)

	// Entries returns every pool slot in id order, starting at id 1
	Entries() []types.StringPoolEntry
}

// SchemaReader provides the table catalog of an installer database
type SchemaReader interface {
	// TableNames returns the tables listed in _Tables in stored order
	TableNames() []string

	// Columns returns the column definitions of a table in column number order
	Columns(table string) ([]types.ColumnDefinition, bool)
}

// TableReader decodes tables of an installer database
type TableReader interface {
	// Table decodes a single table
	Table(name string) (*types.Table, error)

	// All decodes every table in catalog order, isolating failures per table
	All() []types.TableResult
}

// SummaryInformationReader decodes the summary information property set
type SummaryInformationReader interface {
	// Summary returns the named mapping
	Summary() *types.SummaryInformation

	// Properties returns every property keyed by id
	Properties() map[uint32]types.Property

	// Diagnostics returns properties that could not be decoded
	Diagnostics() []types.Diagnostic
}
