package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
)

func TestBlockedSet(t *testing.T) {
	got := blockedSet([]string{"Image", "Font", "Bogus", "Image"})

	assert.Len(t, got, 2)
	assert.Contains(t, got, proto.NetworkResourceTypeImage)
	assert.Contains(t, got, proto.NetworkResourceTypeFont)
	assert.NotContains(t, got, proto.NetworkResourceTypeDocument)

	assert.Empty(t, blockedSet(nil))
}

func TestToHeadersMap(t *testing.T) {
	h := toHeadersMap(map[string]string{"Accept-Language": "en-US"})
	assert.Equal(t, "en-US", h["Accept-Language"].Str())
}

func TestResolveBin_Missing(t *testing.T) {
	_, err := resolveBin("/nonexistent/chrome")
	assert.Error(t, err)
}
