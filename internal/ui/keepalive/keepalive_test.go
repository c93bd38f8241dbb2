package keepalive

import (
	"context"
	"testing"
	"time"

	"slidewake/internal/core/guard"
	"slidewake/internal/ui/animation"

	"fyne.io/fyne/v2/test"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ guard.KeepAlive = (*Element)(nil)

func newTestElement(t *testing.T) (*Element, *clockwork.FakeClock) {
	t.Helper()
	test.NewTempApp(t)
	clock := clockwork.NewFakeClock()
	engine := animation.New(animation.DefaultConfig(), clock)
	t.Cleanup(engine.StopAll)
	return New(context.Background(), engine), clock
}

func TestPlayBeforeAttachIsRefused(t *testing.T) {
	element, _ := newTestElement(t)

	assert.ErrorIs(t, element.Play(), ErrNotShown)
	assert.True(t, element.Paused())
	assert.False(t, element.Object().Visible())
}

func TestPlayLoopsUntilStopped(t *testing.T) {
	element, clock := newTestElement(t)
	element.Attach()

	require.NoError(t, element.Play())
	assert.False(t, element.Paused())
	assert.True(t, element.Object().Visible())
	assert.Equal(t, float32(Size), element.Object().MinSize().Width)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(animation.DefaultConfig().KeepAlivePeriod)
	assert.False(t, element.Paused())

	require.NoError(t, element.Play())

	element.Stop()
	assert.True(t, element.Paused())
	assert.False(t, element.Object().Visible())
}
