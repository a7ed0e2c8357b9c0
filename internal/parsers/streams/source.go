// Package streams maps installer stream names onto compound file entries, classifies
// streams and sniffs their content type.
package streams

import (
	"errors"
	"strings"

	"github.com/deploymenttheory/go-msi/internal/interfaces"
	"github.com/deploymenttheory/go-msi/internal/parsers/streamname"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Source resolves installer stream names against a compound file.
type Source struct {
	cf interfaces.CompoundFileReader
}

var _ interfaces.StreamSource = (*Source)(nil)

// NewSource wraps a parsed compound file.
func NewSource(cf interfaces.CompoundFileReader) *Source {
	return &Source{cf: cf}
}

// Resolve finds the entry for an installer name. Names may be given decoded
// ("Binary.Foo"), as stored, or as a /-separated path into nested storages.
func (s *Source) Resolve(name string) (types.DirectoryEntry, error) {
	parts := strings.Split(name, "/")

	encoded := make([]string, len(parts))
	for i, p := range parts {
		encoded[i] = streamname.Encode(p, false)
	}
	entry, err := s.cf.Lookup(encoded...)
	if err == nil || !errors.Is(err, types.ErrStreamNotFound) {
		return entry, err
	}

	// stored verbatim: property sets, signatures and names outside the packed alphabet
	if entry, err := s.cf.Lookup(parts...); err == nil {
		return entry, nil
	}

	// table row streams, addressed by table name
	if len(parts) == 1 {
		if entry, err := s.cf.Lookup(streamname.Encode(name, true)); err == nil {
			return entry, nil
		}
	}
	return types.DirectoryEntry{}, err
}

// Stream returns the content of the named stream
func (s *Source) Stream(name string) ([]byte, error) {
	entry, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	return s.cf.ReadStream(entry)
}

// TableStream returns the row stream of the named table
func (s *Source) TableStream(table string) ([]byte, error) {
	entry, err := s.cf.Lookup(streamname.Encode(table, true))
	if err != nil {
		return nil, err
	}
	return s.cf.ReadStream(entry)
}

// List describes every stream of the container in stream id order, with decoded
// names and a kind.
func (s *Source) List() []types.StreamInfo {
	entries := s.cf.Entries()
	byID := make(map[int]types.DirectoryEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	decoded := make(map[int]string, len(entries))
	var path func(e types.DirectoryEntry) string
	path = func(e types.DirectoryEntry) string {
		if name, ok := decoded[e.ID]; ok {
			return name
		}
		name, _ := streamname.Decode(e.Name)
		if parent, ok := byID[e.Parent]; ok {
			name = path(parent) + "/" + name
		}
		decoded[e.ID] = name
		return name
	}

	var infos []types.StreamInfo
	for _, e := range entries {
		if !e.IsStream() {
			continue
		}
		name := path(e)
		_, table := streamname.Decode(e.Name)
		info := types.StreamInfo{
			ID:   e.ID,
			Name: name,
			Size: e.Size,
			Kind: Classify(name, table, e.Parent > 0),
		}
		if e.Path != name {
			info.RawName = e.Path
		}
		infos = append(infos, info)
	}
	return infos
}

// Classify assigns a kind from a decoded name: table row streams carry the table
// marker, system streams start with a control character or an underscore, and
// everything else is an embedded payload.
func Classify(name string, table, nested bool) types.StreamKind {
	switch {
	case table:
		return types.StreamKindTable
	case nested:
		return types.StreamKindEmbedded
	case name == "":
		return types.StreamKindEmbedded
	case name[0] < 0x20 || name[0] == '_':
		return types.StreamKindSystem
	}
	return types.StreamKindEmbedded
}
