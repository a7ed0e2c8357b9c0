package tables

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/deploymenttheory/go-msi/internal/interfaces"
	"github.com/deploymenttheory/go-msi/internal/logging"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Reader decodes tables listed in a schema. It holds no mutable state after
// construction, so tables may be decoded concurrently.
type Reader struct {
	src     interfaces.StreamSource
	pool    interfaces.StringPoolReader
	schema  *Schema
	workers int
	logger  logrus.FieldLogger
}

var _ interfaces.TableReader = (*Reader)(nil)

// NewReader creates a table reader. workers bounds parallel decoding; values below 1
// mean one worker per CPU.
func NewReader(src interfaces.StreamSource, pool interfaces.StringPoolReader, schema *Schema, workers int, logger logrus.FieldLogger) *Reader {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Reader{
		src:     src,
		pool:    pool,
		schema:  schema,
		workers: workers,
		logger:  logging.OrDiscard(logger),
	}
}

// Schema returns the catalog the reader decodes against
func (r *Reader) Schema() *Schema {
	return r.schema
}

// Table decodes a single table. A table listed in the catalog without a row stream has
// no rows. _Tables and _Columns decode with their fixed layouts.
func (r *Reader) Table(name string) (*types.Table, error) {
	columns, ok := r.schema.Columns(name)
	if !ok {
		if columns, ok = r.schema.CatalogColumns(name); !ok {
			if err := r.schema.TableError(name); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: table %q is not in the catalog", types.ErrStreamNotFound, name)
		}
	}
	if err := r.schema.TableError(name); err != nil {
		return nil, err
	}

	data, err := r.src.TableStream(name)
	switch {
	case errors.Is(err, types.ErrStreamNotFound):
		data = nil
	case err != nil:
		return nil, fmt.Errorf("failed to read rows of %s: %w", name, err)
	}

	rows, err := DecodeRows(name, columns, data, r.pool)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []types.Row{}
	}
	return &types.Table{Name: name, Columns: columns, Rows: rows}, nil
}

// All decodes every cataloged table in catalog order.
func (r *Reader) All() []types.TableResult {
	return r.Decode(context.Background(), r.schema.TableNames())
}

// Decode decodes the named tables in parallel and returns one result per name, in the
// order given. A failing table never stops its siblings.
func (r *Reader) Decode(ctx context.Context, names []string) []types.TableResult {
	results := make([]types.TableResult, len(names))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			results[i].Name = name
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			began := time.Now()
			table, err := r.Table(name)
			if err != nil {
				r.logger.WithFields(logrus.Fields{"table": name, "reason": err.Error()}).Warn("table is unreadable")
				results[i].Err = err
				return nil
			}
			r.logger.WithFields(logrus.Fields{
				"table":    name,
				"rows":     len(table.Rows),
				"duration": time.Since(began),
			}).Debug("decoded table")
			results[i].Table = table
			return nil
		})
	}
	_ = eg.Wait()

	return results
}
