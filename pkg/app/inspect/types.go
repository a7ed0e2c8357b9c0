// Package inspect handles the read-only listing commands: metadata, streams and tables.
package inspect

import (
	"github.com/deploymenttheory/go-msi/pkg/app"
)

// MetadataRequest asks for the summary information of a package
type MetadataRequest struct {
	Target app.PackageTarget
}

// StreamsRequest asks for the stream listing of a package
type StreamsRequest struct {
	Target app.PackageTarget

	// All lists table and system streams as well as embedded ones
	All      bool
	Digests  bool
	Identify bool
}

// TablesRequest asks for decoded tables
type TablesRequest struct {
	Target app.PackageTarget

	// Tables restricts the listing to the named tables, in the order given
	Tables []string
	// IncludeMeta adds the _Tables and _Columns catalog tables
	IncludeMeta bool
}
