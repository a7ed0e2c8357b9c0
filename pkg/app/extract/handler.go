package extract

import (
	"fmt"

	"github.com/deploymenttheory/go-msi/pkg/app"
	"github.com/deploymenttheory/go-msi/pkg/msi"
)

// HandleStream processes a single stream request. A stream that could only be read in
// part is written and reported as truncated, not as an error.
func HandleStream(ctx *app.Context, req *StreamRequest) (*msi.ExtractedStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pkg, err := ctx.Open(req.Target)
	if err != nil {
		return nil, err
	}

	result, err := pkg.Extract(req.StreamName, req.OutputDir)
	if err != nil {
		return nil, app.WrapEngineError("failed to extract "+req.StreamName, err)
	}
	if result.Status == msi.ExtractTruncated {
		ctx.Error(fmt.Sprintf("%s is damaged: %s", req.StreamName, result.Error))
	}
	ctx.Log(fmt.Sprintf("Wrote %s (%s)", result.Path, app.FormatBytes(int64(result.Size))))
	return &result, nil
}

// HandleAll processes an extract-all request
func HandleAll(ctx *app.Context, req *AllRequest) (*msi.ExtractionReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pkg, err := ctx.Open(req.Target)
	if err != nil {
		return nil, err
	}
	ctx.Progress("Extracting streams...", 25)

	var report msi.ExtractionReport
	if req.Archive != "" {
		report, err = pkg.ExtractArchive(req.Archive)
	} else {
		report, err = pkg.ExtractAll(req.OutputDir)
	}
	if err != nil {
		return nil, app.WrapEngineError("extraction failed", err)
	}

	ctx.Progress("Complete", 100)
	ctx.Log(Summary(&report))
	return &report, nil
}

// HandleCertificate processes a certificate request. An unsigned package yields a
// report with status absent.
func HandleCertificate(ctx *app.Context, req *CertificateRequest) (*msi.ExtractionReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pkg, err := ctx.Open(req.Target)
	if err != nil {
		return nil, err
	}

	report, err := pkg.ExtractCertificate(req.OutputDir)
	if err != nil {
		return nil, app.WrapEngineError("failed to extract the signature", err)
	}
	if report.Signature == msi.SignatureAbsent {
		ctx.Log("Package is not signed")
	}
	return &report, nil
}

// HandleExport processes an export request
func HandleExport(ctx *app.Context, req *ExportRequest) (*msi.ExportReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pkg, err := ctx.Open(req.Target)
	if err != nil {
		return nil, err
	}
	ctx.Progress("Exporting tables...", 25)

	report, err := pkg.ExportSQLite(ctx, req.DatabasePath)
	if err != nil {
		return nil, app.WrapEngineError("export failed", err)
	}
	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Exported %d tables into %s", len(report.Tables), report.Database))
	return &report, nil
}
