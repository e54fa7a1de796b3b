package osc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageNarrowsFloats(t *testing.T) {
	msg, err := buildMessage("/xsens11", []interface{}{int32(11), 0.12346, float64(3)})
	require.NoError(t, err)
	assert.Equal(t, "/xsens11", msg.Address)
	require.Len(t, msg.Arguments, 3)
	assert.Equal(t, int32(11), msg.Arguments[0])
	assert.Equal(t, float32(0.12346), msg.Arguments[1])
	assert.Equal(t, float32(3), msg.Arguments[2])
}

func TestBuildMessageRejectsUnsupportedTypes(t *testing.T) {
	_, err := buildMessage("/xsens11", []interface{}{struct{}{}})
	assert.Error(t, err)
}

func TestBuildMessageEmptyPayload(t *testing.T) {
	msg, err := buildMessage("/xsens11-correlation-others", nil)
	require.NoError(t, err)
	assert.Empty(t, msg.Arguments)
}
