package services

import (
	"context"

	"github.com/opencontainers/go-digest"

	"github.com/deploymenttheory/go-msi/internal/types"
)

// PackageSource loads installer packages from disk
type PackageSource interface {
	Load(path string) ([]byte, error)
	MaxSize() int64
}

// StreamDigester fingerprints stream content
type StreamDigester interface {
	SHA256(data []byte) digest.Digest
	BLAKE3(data []byte) string
	Compute(data []byte) Digests
	Verify(expected digest.Digest, data []byte) (bool, error)
}

// StreamWriter writes extracted streams as files in a directory
type StreamWriter interface {
	PrepareDir(dir string) error
	WriteFile(dir, fileName string, data []byte) (string, error)
}

// EntryWriter bundles extracted streams into a single archive
type EntryWriter interface {
	Add(name string, data []byte) (string, error)
	Close() error
}

// TableExporter writes decoded tables into an external store
type TableExporter interface {
	Export(ctx context.Context, path string, tables []*types.Table) ([]ExportedTable, error)
}

var (
	_ PackageSource  = (*PackageLoader)(nil)
	_ StreamDigester = (*DigestService)(nil)
	_ StreamWriter   = (*ExtractionService)(nil)
	_ EntryWriter    = (*ArchiveWriter)(nil)
	_ TableExporter  = (*SQLiteExporter)(nil)
)
