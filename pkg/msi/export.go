package msi

import (
	"context"

	"github.com/deploymenttheory/go-msi/internal/services"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// ExportedTable reports how many rows of a table were exported
type ExportedTable = services.ExportedTable

// ExportReport is the result of ExportSQLite
type ExportReport struct {
	Database    string             `json:"database" yaml:"database"`
	Tables      []ExportedTable    `json:"tables" yaml:"tables"`
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// ExportSQLite writes every decodable table into a new SQLite database at dbPath.
// Tables that cannot be decoded are skipped and reported as diagnostics.
func (p *Package) ExportSQLite(ctx context.Context, dbPath string) (ExportReport, error) {
	listing := p.Tables()
	report := ExportReport{Database: dbPath, Diagnostics: listing.Diagnostics}

	var exporter services.TableExporter = services.NewSQLiteExporter(p.logger)
	exported, err := exporter.Export(ctx, dbPath, listing.Tables)
	if err != nil {
		return report, err
	}
	report.Tables = exported
	return report, nil
}
