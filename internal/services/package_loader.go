package services

import (
	"fmt"
	"io"
	"os"

	"github.com/deploymenttheory/go-msi/internal/types"
)

// DefaultMaxFileSize caps how much of an input file is read into memory
const DefaultMaxFileSize int64 = 512 << 20

// PackageLoader reads installer packages from disk into memory. Compound files link
// sectors in arbitrary order, so the whole file is held for random access.
type PackageLoader struct {
	maxSize int64
}

// NewPackageLoader creates a loader that rejects files larger than maxSize bytes.
// Values below 1 select DefaultMaxFileSize.
func NewPackageLoader(maxSize int64) *PackageLoader {
	if maxSize < 1 {
		maxSize = DefaultMaxFileSize
	}
	return &PackageLoader{maxSize: maxSize}
}

// MaxSize returns the configured limit
func (pl *PackageLoader) MaxSize() int64 {
	return pl.maxSize
}

// Load reads the package at filePath. The size is checked before anything is read.
func (pl *PackageLoader) Load(filePath string) ([]byte, error) {
	if filePath == "" {
		return nil, fmt.Errorf("package file path cannot be empty")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open package file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%s is a directory", filePath)
	}
	if fileInfo.Size() > pl.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", types.ErrFileTooLarge, filePath, fileInfo.Size(), pl.maxSize)
	}

	// a file growing after Stat is still capped
	data, err := io.ReadAll(io.LimitReader(file, pl.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read package file: %w", err)
	}
	if int64(len(data)) > pl.maxSize {
		return nil, fmt.Errorf("%w: %s grew past %d bytes while reading", types.ErrFileTooLarge, filePath, pl.maxSize)
	}
	return data, nil
}
