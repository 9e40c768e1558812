package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialogState(t *testing.T) {
	var d dialogState
	assert.False(t, d.take())
	assert.False(t, d.open.Load())

	d.opened()
	assert.True(t, d.open.Load())
	assert.True(t, d.take(), "an open dialog is reported")
	assert.False(t, d.take(), "and only once")
	assert.True(t, d.open.Load(), "take does not close it")

	// Accepted in the background before anyone looked.
	d.closed()
	d.opened()
	d.closed()
	assert.False(t, d.open.Load())
	assert.True(t, d.take())
	assert.False(t, d.take())
}
