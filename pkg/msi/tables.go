package msi

import (
	"context"
	"fmt"

	"github.com/deploymenttheory/go-msi/internal/types"
)

// Tables decodes every table listed in _Tables, in catalog order. The result is
// computed once; every call gets its own copy.
func (p *Package) Tables() TableListing {
	p.tablesOnce.Do(func() {
		p.listing = p.decodeTables(context.Background(), p.TableNames())
	})
	listing := TableListing{
		Tables:      make([]*types.Table, len(p.listing.Tables)),
		Diagnostics: append([]types.Diagnostic(nil), p.listing.Diagnostics...),
	}
	for i, t := range p.listing.Tables {
		listing.Tables[i] = t.Clone()
	}
	return listing
}

// TablesNamed decodes only the named tables, in the order given. _Tables and _Columns
// may be named too.
func (p *Package) TablesNamed(ctx context.Context, names ...string) TableListing {
	return p.decodeTables(ctx, names)
}

// TableNames returns the tables listed in _Tables
func (p *Package) TableNames() []string {
	if p.schema == nil {
		return nil
	}
	return p.schema.TableNames()
}

// Table decodes one table
func (p *Package) Table(name string) (*types.Table, error) {
	if p.databaseErr != nil {
		return nil, fmt.Errorf("table %s is unreadable: %w", name, p.databaseErr)
	}
	return p.tables.Table(name)
}

func (p *Package) decodeTables(ctx context.Context, names []string) TableListing {
	listing := TableListing{Tables: []*types.Table{}}
	if p.databaseErr != nil {
		listing.Diagnostics = append(listing.Diagnostics, *p.databaseErr)
		return listing
	}
	for _, result := range p.tables.Decode(ctx, names) {
		if !result.OK() {
			listing.Diagnostics = append(listing.Diagnostics, types.NewDiagnostic(types.ScopeTable, result.Name, result.Err))
			continue
		}
		listing.Tables = append(listing.Tables, result.Table)
	}
	return listing
}
