package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-msi/internal/logging"
)

// ExtractionService writes stream content to a directory
type ExtractionService struct {
	logger logrus.FieldLogger
}

// NewExtractionService creates a new extraction service
func NewExtractionService(logger logrus.FieldLogger) *ExtractionService {
	return &ExtractionService{logger: logging.OrDiscard(logger)}
}

// SanitizeFileName turns a stream name into a single safe path component. Control and
// other non-printable characters are dropped, path separators become underscores, and
// names that end up empty (or are only dots) become stream-<id>.
func SanitizeFileName(name string, id int) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteRune('_')
		case r == unicode.ReplacementChar || !unicode.IsPrint(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	clean := strings.TrimSpace(b.String())
	if strings.Trim(clean, ".") == "" {
		return "stream-" + strconv.Itoa(id)
	}
	return clean
}

// UniqueFileName returns name, or name with a numeric suffix when it is already taken
func UniqueFileName(name string, taken map[string]bool) string {
	candidate := name
	for n := 1; taken[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s.%d", name, n)
	}
	taken[strings.ToLower(candidate)] = true
	return candidate
}

// PrepareDir creates dir and any missing parents
func (es *ExtractionService) PrepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// WriteFile writes data to dir/fileName with mode 0644, creating dir when needed, and
// returns the path written
func (es *ExtractionService) WriteFile(dir, fileName string, data []byte) (string, error) {
	if err := es.PrepareDir(dir); err != nil {
		return "", err
	}
	if fileName != filepath.Base(fileName) || fileName == "." || fileName == ".." {
		return "", fmt.Errorf("invalid output file name %q", fileName)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	es.logger.WithFields(logrus.Fields{"path": path, "bytes": len(data)}).Debug("wrote stream")
	return path, nil
}
