package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-msi/pkg/app"
	"github.com/deploymenttheory/go-msi/pkg/app/extract"
)

var archivePath string

var extractCmd = &cobra.Command{
	Use:   "extract <msi> <out-dir> <stream-name>",
	Short: "Extract one stream",
	Long: `Extract one stream into a directory. The stream is named as listed by
list-streams; nested storages are addressed with / separated paths.

Examples:
  go-msi extract setup.msi ./out Binary.CustomActions`,

	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext()
		if err != nil {
			return err
		}
		req := &extract.StreamRequest{
			Target:     app.PackageTarget{Path: args[0]},
			OutputDir:  args[1],
			StreamName: args[2],
		}
		result, err := extract.HandleStream(ctx, req)
		if err != nil {
			return err
		}
		return extract.FormatStream(ctx, result)
	},
}

var extractAllCmd = &cobra.Command{
	Use:   "extract-all <msi> [out-dir]",
	Short: "Extract every embedded stream",
	Long: `Extract every embedded stream into a directory, or into a single tar archive
with --archive. The archive is compressed according to its extension: .tar.zst
(default), .tar.xz, .tar.gz or plain .tar.

Examples:
  go-msi extract-all setup.msi ./out
  go-msi extract-all setup.msi --archive streams.tar.zst`,

	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext()
		if err != nil {
			return err
		}
		req := &extract.AllRequest{
			Target:  app.PackageTarget{Path: args[0]},
			Archive: archivePath,
		}
		if len(args) == 2 {
			req.OutputDir = args[1]
		}
		report, err := extract.HandleAll(ctx, req)
		if err != nil {
			return err
		}
		return extract.FormatReport(ctx, report)
	},
}

var extractCertificateCmd = &cobra.Command{
	Use:   "extract-certificate <msi> <out-dir>",
	Short: "Extract the digital signature",
	Long: `Write the DigitalSignature stream and, when present, MsiDigitalSignatureEx into
a directory. The signature is not validated. An unsigned package is reported with
signature status absent.

Examples:
  go-msi extract-certificate setup.msi ./sig`,

	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext()
		if err != nil {
			return err
		}
		req := &extract.CertificateRequest{
			Target:    app.PackageTarget{Path: args[0]},
			OutputDir: args[1],
		}
		report, err := extract.HandleCertificate(ctx, req)
		if err != nil {
			return err
		}
		return extract.FormatReport(ctx, report)
	},
}

var exportSQLiteCmd = &cobra.Command{
	Use:   "export-sqlite <msi> <db-path>",
	Short: "Export every table into a SQLite database",
	Long: `Write every decodable table into a new SQLite database, one SQL table per
package table. Binary cells hold the name of the stream carrying their bytes.

Examples:
  go-msi export-sqlite setup.msi setup.db
  sqlite3 setup.db 'SELECT * FROM CustomAction'`,

	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext()
		if err != nil {
			return err
		}
		req := &extract.ExportRequest{
			Target:       app.PackageTarget{Path: args[0]},
			DatabasePath: args[1],
		}
		report, err := extract.HandleExport(ctx, req)
		if err != nil {
			return err
		}
		return extract.FormatExport(ctx, report)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd, extractAllCmd, extractCertificateCmd, exportSQLiteCmd)

	extractAllCmd.Flags().StringVar(&archivePath, "archive", "", "write streams into this tar archive instead of a directory")
}
