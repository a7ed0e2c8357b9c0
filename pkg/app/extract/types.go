// Package extract handles the commands that write package content to disk: single
// streams, every embedded stream, the signature and the SQLite export.
package extract

import (
	"github.com/deploymenttheory/go-msi/pkg/app"
)

// StreamRequest extracts one stream
type StreamRequest struct {
	Target     app.PackageTarget
	OutputDir  string
	StreamName string
}

// AllRequest extracts every embedded stream, either into OutputDir or into the tar
// archive at Archive
type AllRequest struct {
	Target    app.PackageTarget
	OutputDir string
	Archive   string
}

// CertificateRequest extracts the signature streams
type CertificateRequest struct {
	Target    app.PackageTarget
	OutputDir string
}

// ExportRequest writes every table into a new SQLite database
type ExportRequest struct {
	Target       app.PackageTarget
	DatabasePath string
}
