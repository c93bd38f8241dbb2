package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHIDIdleTime(t *testing.T) {
	output := []byte(`+-o IOHIDSystem  <class IOHIDSystem, id 0x100000223>
    {
      "HIDIdleTime" = 2500000000
      "HIDParameters" = {"HIDMouseAcceleration"=45056}
    }
`)
	idle, err := parseHIDIdleTime(output)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, idle)

	_, err = parseHIDIdleTime([]byte("nothing here"))
	assert.ErrorIs(t, err, ErrIdleUnsupported)
}
