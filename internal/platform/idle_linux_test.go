package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdleMillis(t *testing.T) {
	idle, err := parseIdleMillis("1534\n")
	require.NoError(t, err)
	assert.Equal(t, 1534*time.Millisecond, idle)

	idle, err = parseIdleMillis("-5")
	require.NoError(t, err)
	assert.Zero(t, idle)

	_, err = parseIdleMillis("n/a")
	assert.Error(t, err)
}
