// Package msi inspects Windows Installer packages: summary metadata, streams, tables
// and the embedded signature. Packages are read entirely into memory and never
// modified; every method on an opened Package is safe for concurrent use.
package msi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-msi/internal/logging"
	"github.com/deploymenttheory/go-msi/internal/parsers/cfb"
	"github.com/deploymenttheory/go-msi/internal/parsers/codepage"
	"github.com/deploymenttheory/go-msi/internal/parsers/streams"
	"github.com/deploymenttheory/go-msi/internal/parsers/stringpool"
	"github.com/deploymenttheory/go-msi/internal/parsers/summary"
	"github.com/deploymenttheory/go-msi/internal/parsers/tables"
	"github.com/deploymenttheory/go-msi/internal/services"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Package is an opened installer package
type Package struct {
	container *cfb.Container
	src       *streams.Source
	pool      *stringpool.Pool
	schema    *tables.Schema
	tables    *tables.Reader
	summary   *types.SummaryInformation

	// databaseErr explains why no table can be decoded
	databaseErr *types.Diagnostic
	diagnostics []types.Diagnostic

	digests   services.StreamDigester
	extractor services.StreamWriter
	opts      options
	logger    logrus.FieldLogger

	tablesOnce sync.Once
	listing    TableListing
}

// Open reads the package at path. Files above the configured size limit are rejected
// with ErrFileTooLarge before they are read.
func Open(path string, opts ...Option) (*Package, error) {
	o := collectOptions(opts)
	var loader services.PackageSource = services.NewPackageLoader(o.maxFileSize)
	data, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	logging.OrDiscard(o.logger).WithFields(logrus.Fields{"path": path, "bytes": len(data)}).Debug("loaded package")
	return OpenBytes(data, opts...)
}

// OpenBytes parses a package held in memory. Only a broken compound file is an error;
// an unreadable string pool, catalog or summary stream is recorded as a diagnostic and
// the rest of the package stays available.
func OpenBytes(data []byte, opts ...Option) (*Package, error) {
	o := collectOptions(opts)
	logger := logging.OrDiscard(o.logger)

	container, err := cfb.Open(data, logger)
	if err != nil {
		return nil, err
	}

	p := &Package{
		container:   container,
		src:         streams.NewSource(container),
		diagnostics: container.Diagnostics(),
		digests:     services.NewDigestService(),
		extractor:   services.NewExtractionService(logger),
		opts:        o,
		logger:      logger,
	}
	p.loadDatabase()
	p.loadSummary()
	return p, nil
}

// loadDatabase decodes the string pool and the table catalog
func (p *Package) loadDatabase() {
	pool, err := p.loadStringPool()
	if err != nil {
		d := types.NewDiagnostic(types.ScopeStringPool, types.StringPoolTable, err)
		p.databaseErr = &d
		p.pool = stringpool.Empty()
		return
	}
	p.pool = pool
	if w := pool.Warning(); w != nil {
		p.diagnostics = append(p.diagnostics, types.NewDiagnostic(types.ScopeStringPool, types.StringPoolTable, w))
	}

	schema, err := tables.ReadSchema(p.src, pool)
	if err != nil {
		d := types.NewDiagnostic(types.ScopeTable, types.TablesTable, err)
		p.databaseErr = &d
		return
	}
	p.schema = schema
	p.tables = tables.NewReader(p.src, pool, schema, p.opts.workers, p.logger)
}

func (p *Package) loadStringPool() (*stringpool.Pool, error) {
	poolData, err := p.src.TableStream(types.StringPoolTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", types.StringPoolTable, err)
	}
	stringData, err := p.src.TableStream(types.StringDataTable)
	if err != nil && !errors.Is(err, types.ErrStreamNotFound) {
		return nil, fmt.Errorf("failed to read %s: %w", types.StringDataTable, err)
	}
	return stringpool.Decode(poolData, stringData)
}

// loadSummary decodes \005SummaryInformation. A truncated stream is still parsed as far
// as it goes.
func (p *Package) loadSummary() {
	data, err := p.src.Stream(types.SummaryInformationStream)
	switch {
	case errors.Is(err, types.ErrStreamNotFound):
		p.summary = emptySummary()
		return
	case err != nil:
		p.diagnostics = append(p.diagnostics, types.NewDiagnostic(types.ScopeStream, types.SummaryInformationStream, err))
	}

	reader, err := summary.NewReader(data)
	if err != nil {
		p.diagnostics = append(p.diagnostics, types.NewDiagnostic(types.ScopeStream, types.SummaryInformationStream, err))
		p.summary = emptySummary()
		return
	}
	for _, d := range reader.Diagnostics() {
		p.logger.WithFields(logrus.Fields{"property": d.Name, "reason": d.Reason}).Warn("summary property kept raw")
		p.diagnostics = append(p.diagnostics, d)
	}
	p.summary = reader.Summary()
}

func emptySummary() *types.SummaryInformation {
	return &types.SummaryInformation{
		Codepage:     codepage.Default,
		CodepageName: codepage.Name(codepage.Default),
		Properties:   map[uint32]types.Property{},
	}
}

// Diagnostics returns every per-item problem found while opening the package and
// decoding its tables
func (p *Package) Diagnostics() []types.Diagnostic {
	out := append([]types.Diagnostic(nil), p.diagnostics...)
	return append(out, p.Tables().Diagnostics...)
}

// Codepage returns the code page of the package's strings
func (p *Package) Codepage() int {
	return p.pool.Codepage()
}

// StringPool returns every interned string in id order
func (p *Package) StringPool() []types.StringPoolEntry {
	return p.pool.Entries()
}

// SectorSize returns the sector size of the underlying compound file
func (p *Package) SectorSize() int {
	return p.container.SectorSize()
}
