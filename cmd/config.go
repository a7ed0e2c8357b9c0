package cmd

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-msi/internal/services"
	"github.com/deploymenttheory/go-msi/pkg/app"
)

// Config holds the settings shared by every command
type Config struct {
	Output               string `mapstructure:"output"`
	Pretty               bool   `mapstructure:"pretty"`
	Verbose              bool   `mapstructure:"verbose"`
	Quiet                bool   `mapstructure:"quiet"`
	LogLevel             string `mapstructure:"log_level"`
	LogFormat            string `mapstructure:"log_format"`
	MaxFileSize          string `mapstructure:"max_file_size"`
	Workers              int    `mapstructure:"workers"`
	IncludeSystemStreams bool   `mapstructure:"include_system_streams"`
	Digests              bool   `mapstructure:"digests"`
}

// setDefaults registers the default of every configuration key
func setDefaults(v *viper.Viper) {
	v.SetDefault("output", app.FormatJSON)
	v.SetDefault("pretty", false)
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("max_file_size", humanize.IBytes(uint64(services.DefaultMaxFileSize)))
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("include_system_streams", false)
	v.SetDefault("digests", false)
}

// LoadConfig reads configuration using Viper. cfgFile, when set, must exist; otherwise
// .go-msi.yaml is looked up in the working directory and in $HOME, and a missing file
// leaves the defaults in place. GOMSI_* environment variables override the file.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".go-msi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	// Allow environment variables
	v.SetEnvPrefix("GOMSI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings no command can honour
func (c *Config) Validate() error {
	if err := app.ValidateFormat(c.Output); err != nil {
		return err
	}
	if c.Verbose && c.Quiet {
		return app.NewError(app.ErrCodeInvalidInput, "cannot be both verbose and quiet", nil)
	}
	size, err := c.MaxFileSizeBytes()
	if err != nil {
		return err
	}
	if size <= 0 {
		return app.NewError(app.ErrCodeInvalidInput, "max_file_size must be positive", nil)
	}
	return nil
}

// MaxFileSizeBytes parses max_file_size, which accepts units such as "512MiB"
func (c *Config) MaxFileSizeBytes() (int64, error) {
	return app.ParseBytes(c.MaxFileSize)
}

// ConfigFileUsed reports the config file that was read, if any
func ConfigFileUsed(v *viper.Viper) string {
	return v.ConfigFileUsed()
}
