package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-msi/pkg/app"
	"github.com/deploymenttheory/go-msi/pkg/app/inspect"
)

var (
	streamsAll      bool
	streamsDigests  bool
	streamsIdentify bool

	tableNames  []string
	includeMeta bool
)

var listMetadataCmd = &cobra.Command{
	Use:   "list-metadata <msi>",
	Short: "Show the summary information of a package",
	Long: `Show the summary information stream of a package: title, author, template
(architecture and languages), package code, timestamps, code page and whether the
package carries a digital signature.

Examples:
  go-msi list-metadata setup.msi --pretty
  go-msi list-metadata setup.msi -o table`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext()
		if err != nil {
			return err
		}
		meta, err := inspect.HandleMetadata(ctx, &inspect.MetadataRequest{Target: app.PackageTarget{Path: args[0]}})
		if err != nil {
			return err
		}
		return inspect.FormatMetadata(ctx, meta)
	},
}

var listStreamsCmd = &cobra.Command{
	Use:   "list-streams <msi>",
	Short: "List the streams of a package",
	Long: `List the streams of a package with decoded names and sizes. By default only
embedded payloads (Binary, Icon, cabinets) are listed.

Examples:
  # Every stream, including tables and property sets
  go-msi list-streams setup.msi --all

  # Fingerprint and identify embedded payloads
  go-msi list-streams setup.msi --digests --identify -o table`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext()
		if err != nil {
			return err
		}
		req := &inspect.StreamsRequest{
			Target:   app.PackageTarget{Path: args[0]},
			All:      streamsAll || config.IncludeSystemStreams,
			Digests:  streamsDigests || config.Digests,
			Identify: streamsIdentify,
		}
		listing, err := inspect.HandleStreams(ctx, req)
		if err != nil {
			return err
		}
		return inspect.FormatStreams(ctx, listing)
	},
}

var listTablesCmd = &cobra.Command{
	Use:   "list-tables <msi>",
	Short: "Decode the tables of a package",
	Long: `Decode the tables of a package with their columns and rows. Tables that cannot
be decoded are reported under diagnostics and do not stop the others.

Examples:
  go-msi list-tables setup.msi --table Property --table File
  go-msi list-tables setup.msi --include-meta -o yaml`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext()
		if err != nil {
			return err
		}
		req := &inspect.TablesRequest{
			Target:      app.PackageTarget{Path: args[0]},
			Tables:      tableNames,
			IncludeMeta: includeMeta,
		}
		listing, err := inspect.HandleTables(ctx, req)
		if err != nil {
			return err
		}
		return inspect.FormatTables(ctx, listing)
	},
}

func init() {
	rootCmd.AddCommand(listMetadataCmd, listStreamsCmd, listTablesCmd)

	listStreamsCmd.Flags().BoolVarP(&streamsAll, "all", "a", false, "include table and system streams")
	listStreamsCmd.Flags().BoolVar(&streamsDigests, "digests", false, "compute sha256 and BLAKE3 digests")
	listStreamsCmd.Flags().BoolVar(&streamsIdentify, "identify", false, "identify stream content types")

	listTablesCmd.Flags().StringArrayVarP(&tableNames, "table", "t", nil, "decode only this table (repeatable)")
	listTablesCmd.Flags().BoolVar(&includeMeta, "include-meta", false, "include the _Tables and _Columns catalog")
	listTablesCmd.MarkFlagsMutuallyExclusive("table", "include-meta")
}
