package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	info, err := New(false)
	require.NoError(t, err)
	assert.False(t, info.Core().Enabled(zap.DebugLevel))
	assert.True(t, info.Core().Enabled(zap.InfoLevel))

	debug, err := New(true)
	require.NoError(t, err)
	assert.True(t, debug.Core().Enabled(zap.DebugLevel))
}
