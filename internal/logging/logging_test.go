package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/metacore/internal/cli/config"
)

func TestNew_Level(t *testing.T) {
	tests := []struct {
		cfg     config.LogConfig
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{config.LogConfig{Level: "info"}, zapcore.InfoLevel, zapcore.DebugLevel},
		{config.LogConfig{Level: "warn"}, zapcore.WarnLevel, zapcore.InfoLevel},
		{config.LogConfig{Level: "debug", Development: true}, zapcore.DebugLevel, zapcore.DebugLevel - 1},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Level, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.off))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)

	assert.NotNil(t, Must(config.LogConfig{Level: "loud"}))
}
