// File: internal/interfaces/compound_file.go
package interfaces

import (
	"github.com/deploymenttheory/go-msi/internal/types"
)

// CompoundFileReader provides read access to a parsed Compound File Binary container
type CompoundFileReader interface {
	// Header returns a copy of the validated file header
	Header() types.CFBHeader

	// SectorSize returns the size of a regular sector in bytes
	SectorSize() int

	// Root returns the root storage entry
	Root() types.DirectoryEntry

	// Entries returns every reachable storage and stream entry in stream id order
	Entries() []types.DirectoryEntry

	// Children returns the reachable children of a storage entry in stream id order
	Children(id int) []types.DirectoryEntry

	// Lookup resolves a path of entry names below the root storage
	Lookup(path ...string) (types.DirectoryEntry, error)

	// ReadStream assembles the content of a stream entry
	ReadStream(entry types.DirectoryEntry) ([]byte, error)

	// Diagnostics returns the per-entry problems found while parsing the directory
	Diagnostics() []types.Diagnostic
}

// SectorChainReader follows allocation table chains over a sector store
type SectorChainReader interface {
	// ReadChain concatenates the chain starting at start until size bytes are collected
	ReadChain(start uint32, size uint64) ([]byte, error)

	// SectorCount returns the number of addressable sectors
	SectorCount() uint32
}
