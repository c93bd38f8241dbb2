package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogoIsEmbedded(t *testing.T) {
	resource, err := Logo(LogoFile)
	require.NoError(t, err)
	assert.Contains(t, string(resource.Content()), "<svg")

	again := MustLogo(LogoFile)
	assert.Same(t, resource, again)
}

func TestMissingLogo(t *testing.T) {
	_, err := Logo("missing.png")
	assert.Error(t, err)
	assert.Panics(t, func() { MustLogo("missing.png") })
}
