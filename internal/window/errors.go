package window

import "errors"

var (
	// ErrInvalidState is returned when a command needs a READY window.
	ErrInvalidState = errors.New("window is not ready")
	// ErrNotEnoughWindows is returned when snapping a group of one.
	ErrNotEnoughWindows = errors.New("not enough windows in snap group")
	// ErrNotInGroup is returned when a window is missing from its own group.
	ErrNotInGroup = errors.New("window is not in its snap group")
	// ErrSyncTimeout is returned when pending actions keep arriving faster
	// than they settle.
	ErrSyncTimeout = errors.New("pending actions did not settle")
)
