// Package browser defines the narrow browser capability the probe drives and
// its go-rod implementation.
package browser

import (
	"context"
	"errors"
	"time"
)

// SelectorKind tells Find how to interpret a selector.
type SelectorKind int

const (
	CSS SelectorKind = iota
	XPath
)

// Key is a keyboard key the probe needs to press.
type Key int

const (
	KeyEnter Key = iota
	KeyDelete
	KeyBackspace
)

// ErrNoElement is returned by element lookups that found nothing.
var ErrNoElement = errors.New("browser: no matching element")

// Session is one controllable browser with a single "home" tab. While a
// JavaScript dialog is showing, DOM calls block until it closes or their
// context ends. Every other
// tab is transient: the site may open one on submission, FollowNewTab makes
// it active, and CloseExtraTabs disposes of it.
//
// A Session is not safe for concurrent use.
type Session interface {
	// Navigate loads url in the active tab, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Find returns the elements currently matching selector. It does not wait.
	Find(ctx context.Context, kind SelectorKind, selector string) ([]Element, error)

	// CurrentLocation returns the active tab's URL.
	CurrentLocation(ctx context.Context) (string, error)

	// AbortPendingLoad stops any in-flight page load in the active tab.
	AbortPendingLoad(ctx context.Context) error

	// HTML returns a snapshot of the active tab's serialized DOM.
	HTML(ctx context.Context) (string, error)

	// AcceptDialog accepts a JavaScript alert/confirm if one is showing and
	// reports whether one was showing or was accepted in the background
	// since the previous call.
	AcceptDialog(ctx context.Context) (bool, error)

	// FollowNewTab makes the most recently opened extra tab active and
	// reports whether one existed.
	FollowNewTab(ctx context.Context) (bool, error)

	// CloseExtraTabs closes every tab but the home tab and makes it active.
	CloseExtraTabs(ctx context.Context) error

	// Close releases the browser.
	Close() error
}

// Element is a handle to one DOM element of the active tab.
type Element interface {
	Click(ctx context.Context) error
	SelectAll(ctx context.Context) error
	Press(ctx context.Context, key Key) error
	Type(ctx context.Context, text string) error
	IsVisible(ctx context.Context) (bool, error)
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// Opener creates a Session. The runner owns what it returns.
type Opener func(ctx context.Context) (Session, error)
