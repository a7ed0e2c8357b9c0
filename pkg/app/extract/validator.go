package extract

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/deploymenttheory/go-msi/pkg/app"
)

// Validate validates a single stream request
func (r *StreamRequest) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if err := validateOutputDir(r.OutputDir); err != nil {
		return err
	}
	if r.StreamName == "" {
		return app.NewError(app.ErrCodeInvalidInput, "stream name is required", nil)
	}
	return nil
}

// Validate validates an extract-all request
func (r *AllRequest) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	switch {
	case r.OutputDir == "" && r.Archive == "":
		return app.NewError(app.ErrCodeInvalidInput, "an output directory or an archive path is required", nil)
	case r.OutputDir != "" && r.Archive != "":
		return app.NewError(app.ErrCodeInvalidInput, "cannot specify both an output directory and an archive", nil)
	case r.OutputDir != "":
		return validateOutputDir(r.OutputDir)
	}
	if strings.HasSuffix(r.Archive, string(os.PathSeparator)) {
		return app.NewError(app.ErrCodeInvalidInput, "archive path names a directory", nil)
	}
	return nil
}

// Validate validates a certificate request
func (r *CertificateRequest) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	return validateOutputDir(r.OutputDir)
}

// Validate validates an export request
func (r *ExportRequest) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if r.DatabasePath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "database path is required", nil)
	}
	if _, err := os.Stat(r.DatabasePath); err == nil {
		return app.NewError(app.ErrCodeInvalidInput, r.DatabasePath+" already exists", nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return app.NewError(app.ErrCodeContainerAccess, "cannot access "+r.DatabasePath, err)
	}
	return nil
}

// validateOutputDir accepts a missing directory, which extraction creates, but rejects
// a path that exists and is not a directory
func validateOutputDir(dir string) error {
	if dir == "" {
		return app.NewError(app.ErrCodeInvalidInput, "output directory is required", nil)
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return app.NewError(app.ErrCodeContainerAccess, "cannot access "+dir, err)
	case !info.IsDir():
		return app.NewError(app.ErrCodeInvalidInput, dir+" is not a directory", nil)
	}
	return nil
}
