package services

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ArchiveCompression selects the compression wrapped around a tar bundle
type ArchiveCompression string

const (
	ArchiveZstd ArchiveCompression = "zstd"
	ArchiveXZ   ArchiveCompression = "xz"
	ArchiveGzip ArchiveCompression = "gzip"
	ArchiveNone ArchiveCompression = "none"
)

// CompressionForPath picks the compression from an archive file name: .tar.zst,
// .tar.xz, .tar.gz/.tgz or plain .tar. Anything else defaults to zstd.
func CompressionForPath(path string) ArchiveCompression {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xz") || strings.HasSuffix(lower, ".txz"):
		return ArchiveXZ
	case strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".tgz"):
		return ArchiveGzip
	case strings.HasSuffix(lower, ".tar"):
		return ArchiveNone
	default:
		return ArchiveZstd
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// ArchiveWriter bundles extracted streams into a single compressed tar file
type ArchiveWriter struct {
	file     *os.File
	compress io.WriteCloser
	tw       *tar.Writer
	modTime  time.Time
	names    map[string]int
}

// NewArchiveWriter creates the archive at path. Entries carry modTime so that bundles
// of the same package are byte-identical.
func NewArchiveWriter(path string, compression ArchiveCompression, modTime time.Time) (*ArchiveWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	var compressWriter io.WriteCloser
	switch compression {
	case ArchiveXZ:
		compressWriter, err = xz.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
	case ArchiveGzip:
		compressWriter, err = gzip.NewWriterLevel(file, gzip.BestCompression)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
	case ArchiveNone:
		compressWriter = nopWriteCloser{file}
	default:
		compressWriter, err = zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	return &ArchiveWriter{
		file:     file,
		compress: compressWriter,
		tw:       tar.NewWriter(compressWriter),
		modTime:  modTime,
		names:    make(map[string]int),
	}, nil
}

// Add writes one file into the archive and returns the entry name used. Repeated
// names get a numeric suffix.
func (aw *ArchiveWriter) Add(name string, data []byte) (string, error) {
	entry := name
	if n := aw.names[name]; n > 0 {
		entry = fmt.Sprintf("%s.%d", name, n)
	}
	aw.names[name]++

	header := &tar.Header{
		Name:    entry,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: aw.modTime,
		Format:  tar.FormatPAX,
	}
	if err := aw.tw.WriteHeader(header); err != nil {
		return "", fmt.Errorf("failed to write header for %s: %w", entry, err)
	}
	if _, err := aw.tw.Write(data); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", entry, err)
	}
	return entry, nil
}

// Close flushes the tar stream, the compressor and the file, in that order
func (aw *ArchiveWriter) Close() error {
	tarErr := aw.tw.Close()
	compressErr := aw.compress.Close()
	fileErr := aw.file.Close()
	switch {
	case tarErr != nil:
		return fmt.Errorf("failed to finish tar stream: %w", tarErr)
	case compressErr != nil:
		return fmt.Errorf("failed to finish compression: %w", compressErr)
	case fileErr != nil:
		return fmt.Errorf("failed to close archive: %w", fileErr)
	}
	return nil
}
