package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-msi/internal/logging"
	"github.com/deploymenttheory/go-msi/pkg/app"
)

var (
	cfgFile string
	v       = viper.New()
	config  *Config

	// stdout receives command output
	stdout io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "go-msi",
	Short: "Cross-platform Windows Installer package inspector",
	Long: `go-msi is a cross-platform, read-only command-line tool for inspecting
Windows Installer (.msi) packages without Windows.

It reads the compound file directly and reports summary metadata, streams and
decoded tables, and extracts embedded payloads and the Authenticode signature.

Commands:
  list-metadata        Show summary information
  list-streams         List streams
  list-tables          Decode tables
  extract              Extract one stream
  extract-all          Extract every embedded stream
  extract-certificate  Extract the digital signature
  export-sqlite        Export tables into a SQLite database`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := LoadConfig(v, cfgFile)
		if err != nil {
			return err
		}
		config = loaded

		level := config.LogLevel
		switch {
		case config.Quiet:
			level = "error"
		case config.Verbose && level == "warn":
			level = "info"
		}
		if err := logging.SetUp(level, config.LogFormat); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid logging configuration", err)
		}
		if used := ConfigFileUsed(v); used != "" {
			logrus.WithField("file", used).Debug("loaded configuration")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := app.ErrorCode(err)
		if code == "" {
			code = app.ErrCodeInvalidInput
		}
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", code, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.go-msi.yaml)")
	flags.StringP("output", "o", app.FormatJSON, "output format (json, yaml, table)")
	flags.Bool("pretty", false, "indent JSON output")
	flags.BoolP("verbose", "v", false, "enable verbose output")
	flags.BoolP("quiet", "q", false, "suppress output except errors")
	flags.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("max-file-size", "512 MiB", "reject packages larger than this (e.g. 64MiB)")
	flags.Int("workers", 0, "tables decoded in parallel (default one per CPU)")

	bindFlag("output", flags.Lookup("output"))
	bindFlag("pretty", flags.Lookup("pretty"))
	bindFlag("verbose", flags.Lookup("verbose"))
	bindFlag("quiet", flags.Lookup("quiet"))
	bindFlag("log_level", flags.Lookup("log-level"))
	bindFlag("log_format", flags.Lookup("log-format"))
	bindFlag("max_file_size", flags.Lookup("max-file-size"))
	bindFlag("workers", flags.Lookup("workers"))
}

// newContext builds the application context from the loaded configuration
func newContext() (*app.Context, error) {
	size, err := config.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	ctx := app.NewContext()
	ctx.Out = stdout
	ctx.OutputFormat = config.Output
	ctx.Pretty = config.Pretty
	ctx.Verbose = config.Verbose
	ctx.Quiet = config.Quiet
	ctx.MaxFileSize = size
	ctx.Workers = config.Workers
	ctx.Logger = logrus.StandardLogger()
	return ctx, nil
}
