package platform

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortFromNameIsStableAndInRange(t *testing.T) {
	port := portFromName("Slidewake")
	assert.Equal(t, port, portFromName("Slidewake"))
	assert.GreaterOrEqual(t, port, 20000)
	assert.LessOrEqual(t, port, 39999)
}

func TestSecondInstanceActivatesFirst(t *testing.T) {
	name := "slidewake-test-" + uuid.NewString()
	first, err := AcquireSingleInstance(name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Release() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	activated := make(chan struct{}, 1)
	served := make(chan error, 1)
	go func() {
		served <- first.Serve(ctx, func() { activated <- struct{}{} })
	}()

	second, err := AcquireSingleInstance(name)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Nil(t, second)

	select {
	case <-activated:
	case <-time.After(2 * time.Second):
		t.Fatal("running instance was not activated")
	}

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	guard, err := AcquireSingleInstance("slidewake-test-" + uuid.NewString())
	require.NoError(t, err)
	assert.NoError(t, guard.Release())
	assert.NoError(t, guard.Release())

	var missing *InstanceGuard
	assert.NoError(t, missing.Release())
	assert.Empty(t, missing.Address())
}
