package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zap.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zap.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zap.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zap.InfoLevel, ParseLevel("verbose"))
}

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := New(env, "warn")
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zap.InfoLevel), env)
		assert.True(t, logger.Core().Enabled(zap.WarnLevel), env)
	}
}
