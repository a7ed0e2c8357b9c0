package msi

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-msi/internal/parsers/streams"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Streams lists the streams of the package in directory order. By default only
// embedded payloads are listed; table and system streams are included with All.
func (p *Package) Streams(opts StreamOptions) StreamListing {
	listing := StreamListing{Streams: []types.StreamInfo{}}
	for _, info := range p.src.List() {
		if !opts.All && info.Kind != types.StreamKindEmbedded {
			continue
		}
		if opts.Digests || opts.Identify {
			data, err := p.ReadStream(info.Name)
			if err != nil {
				listing.Diagnostics = append(listing.Diagnostics, types.NewDiagnostic(types.ScopeStream, info.Name, err))
			}
			if opts.Digests {
				d := p.digests.Compute(data)
				info.Digest = d.SHA256.String()
				info.BLAKE3 = d.BLAKE3
			}
			if opts.Identify {
				id := streams.Identify(data)
				info.Group = id.Group
				info.ContentType = id.MIMEType
			}
		}
		listing.Streams = append(listing.Streams, info)
	}
	return listing
}

// ReadStream returns the content of a stream by installer name ("Binary.Foo"), stored
// name, or /-separated path into a nested storage. A damaged chain yields the bytes
// that could be read along with an error wrapping ErrTruncatedStream or
// ErrMalformedContainer.
func (p *Package) ReadStream(name string) ([]byte, error) {
	data, err := p.src.Stream(name)
	if err != nil && !errors.Is(err, types.ErrStreamNotFound) {
		p.logger.WithFields(logrus.Fields{"stream": name, "read": len(data), "reason": err.Error()}).Warn("stream is damaged")
	}
	return data, err
}

// BinaryStream resolves a binary cell: the bytes of the stream referenced by column
// of the row at index row in table
func (p *Package) BinaryStream(table string, row int, column string) ([]byte, error) {
	t, err := p.Table(table)
	if err != nil {
		return nil, err
	}
	col := t.ColumnIndex(column)
	if col < 0 {
		return nil, fmt.Errorf("table %s has no column %q", table, column)
	}
	if row < 0 || row >= len(t.Rows) {
		return nil, fmt.Errorf("table %s has %d rows, no row %d", table, len(t.Rows), row)
	}
	v := t.Rows[row][col]
	if v.Kind() != types.ValueStream {
		return nil, fmt.Errorf("table %s column %s row %d is not a binary stream reference", table, column, row)
	}
	return p.ReadStream(v.Str())
}
