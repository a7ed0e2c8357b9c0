package inspect

import (
	"fmt"

	"github.com/deploymenttheory/go-msi/pkg/app"
	"github.com/deploymenttheory/go-msi/pkg/msi"
)

var catalogTables = []string{"_Tables", "_Columns"}

// HandleMetadata processes a metadata request
func HandleMetadata(ctx *app.Context, req *MetadataRequest) (*msi.Metadata, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pkg, err := ctx.Open(req.Target)
	if err != nil {
		return nil, err
	}
	ctx.Progress("Reading summary information...", 50)

	meta, err := pkg.Metadata()
	if err != nil {
		return nil, app.WrapEngineError("failed to read metadata", err)
	}
	ctx.Progress("Complete", 100)
	return meta, nil
}

// HandleStreams processes a streams request
func HandleStreams(ctx *app.Context, req *StreamsRequest) (*msi.StreamListing, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pkg, err := ctx.Open(req.Target)
	if err != nil {
		return nil, err
	}
	ctx.Progress("Listing streams...", 50)

	listing := pkg.Streams(msi.StreamOptions{
		All:      req.All,
		Digests:  req.Digests,
		Identify: req.Identify,
	})
	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Listed %d streams", len(listing.Streams)))
	return &listing, nil
}

// HandleTables processes a tables request. Tables that fail to decode are reported in
// the listing's diagnostics and never fail the request.
func HandleTables(ctx *app.Context, req *TablesRequest) (*msi.TableListing, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pkg, err := ctx.Open(req.Target)
	if err != nil {
		return nil, err
	}
	ctx.Progress("Decoding tables...", 25)

	var listing msi.TableListing
	if len(req.Tables) > 0 {
		listing = pkg.TablesNamed(ctx, req.Tables...)
	} else {
		listing = pkg.Tables()
	}
	if req.IncludeMeta && len(req.Tables) == 0 {
		meta := pkg.TablesNamed(ctx, catalogTables...)
		listing.Tables = append(meta.Tables, listing.Tables...)
		listing.Diagnostics = append(meta.Diagnostics, listing.Diagnostics...)
	}
	if err := ctx.Err(); err != nil {
		return nil, app.WrapEngineError("table decoding interrupted", err)
	}

	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Decoded %d tables, %d unreadable", len(listing.Tables), len(listing.Diagnostics)))
	return &listing, nil
}
