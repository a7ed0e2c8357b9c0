// Package cfb reads Compound File Binary containers: the header, the sector and mini
// sector allocation tables, the directory tree and the streams it names.
package cfb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-msi/internal/interfaces"
	"github.com/deploymenttheory/go-msi/internal/logging"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// Container is a parsed compound file. It is immutable after Open and safe for
// concurrent readers.
type Container struct {
	header  *types.CFBHeader
	data    []byte
	regular *chainReader
	mini    *chainReader
	dir     *directory
	diags   []types.Diagnostic
	logger  logrus.FieldLogger
}

var _ interfaces.CompoundFileReader = (*Container)(nil)

// Open parses a compound file held entirely in memory. Header, allocation table and
// directory failures are fatal and wrap types.ErrMalformedContainer; problems with
// individual directory entries are recorded as diagnostics.
func Open(data []byte, logger logrus.FieldLogger) (*Container, error) {
	logger = logging.OrDiscard(logger)

	header, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	sectorSize := header.SectorSize()
	store := newSectorStore(data, sectorSize, sectorSize)
	fat, err := buildFAT(header, store)
	if err != nil {
		return nil, fmt.Errorf("failed to build FAT: %w", err)
	}
	regular := &chainReader{store: store, table: fat}

	dirIDs, err := regular.collectChain(header.FirstDirectorySector)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory chain: %w", err)
	}
	dirData := make([]byte, 0, len(dirIDs)*sectorSize)
	for _, id := range dirIDs {
		dirData = append(dirData, store.sector(id)...)
	}
	dir, err := parseDirectory(dirData, header.MajorVersion)
	if err != nil {
		return nil, err
	}

	c := &Container{
		header:  header,
		data:    data,
		regular: regular,
		dir:     dir,
		diags:   append([]types.Diagnostic(nil), dir.diagnostics...),
		logger:  logger,
	}

	if err := c.loadMiniStream(); err != nil {
		return nil, err
	}

	for _, d := range c.diags {
		logger.WithFields(logrus.Fields{"entry": d.Name, "reason": d.Reason}).Warn("skipping directory entry")
	}
	logger.WithFields(logrus.Fields{
		"version":     header.MajorVersion,
		"sector_size": sectorSize,
		"sectors":     store.count,
		"entries":     len(c.Entries()),
	}).Debug("opened compound file")

	return c, nil
}

// loadMiniStream reads the root entry's stream and the mini-FAT. A loop or an out of
// range link in either is fatal; a short mini stream is recorded and tolerated.
func (c *Container) loadMiniStream() error {
	root := c.dir.entries[0]

	var miniFAT []uint32
	if start := c.header.FirstMiniFATSector; start != types.EndOfChain && start != types.FreeSector {
		table, err := c.regular.readTable(start)
		if err != nil {
			return fmt.Errorf("failed to read mini FAT: %w", err)
		}
		miniFAT = table
	}

	var miniData []byte
	if root.Size > 0 {
		data, err := c.regular.ReadChain(root.StartSector, root.Size)
		switch {
		case errors.Is(err, types.ErrMalformedContainer):
			return fmt.Errorf("failed to read mini stream: %w", err)
		case err != nil:
			c.diags = append(c.diags, types.NewDiagnostic(types.ScopeStream, root.Name, err))
		}
		miniData = data
	}

	store := newSectorStore(miniData, 0, c.header.MiniSectorSize())
	if uint32(len(miniFAT)) > store.count {
		miniFAT = miniFAT[:store.count]
	}
	c.mini = &chainReader{store: store, table: miniFAT}
	return nil
}

// Header returns a copy of the validated file header
func (c *Container) Header() types.CFBHeader {
	return *c.header
}

// SectorSize returns the size of a regular sector in bytes
func (c *Container) SectorSize() int {
	return c.header.SectorSize()
}

// Root returns the root storage entry
func (c *Container) Root() types.DirectoryEntry {
	return c.dir.entries[0]
}

// Entries returns every reachable entry except the root, in stream id order
func (c *Container) Entries() []types.DirectoryEntry {
	entries := make([]types.DirectoryEntry, 0, len(c.dir.entries))
	for id := 1; id < len(c.dir.entries); id++ {
		if c.dir.reachable[id] {
			entries = append(entries, c.dir.entries[id])
		}
	}
	return entries
}

// Children returns the reachable children of a storage entry in stream id order
func (c *Container) Children(id int) []types.DirectoryEntry {
	ids := c.dir.children[id]
	entries := make([]types.DirectoryEntry, 0, len(ids))
	for _, child := range ids {
		entries = append(entries, c.dir.entries[child])
	}
	return entries
}

// Lookup resolves a path of names starting below the root. Each step prefers an exact
// match and falls back to a case-insensitive one, as compound file names compare.
func (c *Container) Lookup(path ...string) (types.DirectoryEntry, error) {
	if len(path) == 0 {
		return c.Root(), nil
	}
	cur := 0
	for _, name := range path {
		next := -1
		for _, id := range c.dir.children[cur] {
			if c.dir.entries[id].Name == name {
				next = id
				break
			}
		}
		if next < 0 {
			for _, id := range c.dir.children[cur] {
				if strings.EqualFold(c.dir.entries[id].Name, name) {
					next = id
					break
				}
			}
		}
		if next < 0 {
			return types.DirectoryEntry{}, fmt.Errorf("%w: %q", types.ErrStreamNotFound, strings.Join(path, "/"))
		}
		cur = next
	}
	return c.dir.entries[cur], nil
}

// Diagnostics returns the problems found while opening the container
func (c *Container) Diagnostics() []types.Diagnostic {
	return append([]types.Diagnostic(nil), c.diags...)
}
