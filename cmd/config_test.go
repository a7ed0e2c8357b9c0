package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-msi/pkg/app"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	config, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, app.FormatJSON, config.Output)
	assert.Equal(t, "warn", config.LogLevel)
	assert.Equal(t, runtime.NumCPU(), config.Workers)

	size, err := config.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(512<<20), size)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go-msi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: yaml\npretty: true\nmax_file_size: 64MiB\nworkers: 3\ndigests: true\n"), 0644))

	config, err := LoadConfig(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, app.FormatYAML, config.Output)
	assert.True(t, config.Pretty)
	assert.True(t, config.Digests)
	assert.Equal(t, 3, config.Workers)

	size, err := config.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(64<<20), size)
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go-msi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: yaml\n"), 0644))
	t.Setenv("GOMSI_OUTPUT", "table")
	t.Setenv("GOMSI_INCLUDE_SYSTEM_STREAMS", "true")

	config, err := LoadConfig(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, app.FormatTable, config.Output)
	assert.True(t, config.IncludeSystemStreams)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown output", "output: xml\n"},
		{"verbose and quiet", "verbose: true\nquiet: true\n"},
		{"bad size", "max_file_size: huge\n"},
		{"zero size", "max_file_size: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "go-msi.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadConfig(viper.New(), path)
			assert.Equal(t, app.ErrCodeInvalidInput, app.ErrorCode(err))
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
