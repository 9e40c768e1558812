package browser

import "sync/atomic"

// dialogState follows one tab's JavaScript dialogs from page events.
type dialogState struct {
	open atomic.Bool
	seen atomic.Int32 // dialogs opened since the last take
}

func (d *dialogState) opened() {
	d.open.Store(true)
	d.seen.Add(1)
}

func (d *dialogState) closed() {
	d.open.Store(false)
}

// take reports whether any dialog opened since the previous take.
func (d *dialogState) take() bool {
	return d.seen.Swap(0) > 0
}
