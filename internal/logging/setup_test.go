package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetUp(t *testing.T) {
	prevLevel, prevFormatter, prevOut := logrus.GetLevel(), logrus.StandardLogger().Formatter, logrus.StandardLogger().Out
	t.Cleanup(func() {
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFormatter)
		logrus.SetOutput(prevOut)
	})

	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantJSON  bool
		wantErr   bool
	}{
		{name: "text default", level: "info", format: "", wantLevel: logrus.InfoLevel},
		{name: "json", level: "debug", format: "json", wantLevel: logrus.DebugLevel, wantJSON: true},
		{name: "bad level", level: "loud", format: "text", wantErr: true},
		{name: "bad format", level: "warn", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetUp(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, logrus.GetLevel())
			_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	logger := logrus.New()
	assert.Same(t, logger, OrDiscard(logger))
}
