package platform

import "github.com/1broseidon/winlink/internal/geom"

// EventKind identifies a native window event.
type EventKind string

const (
	EventBeginBoundsChanging EventKind = "begin-bounds-changing"
	EventBoundsChanging      EventKind = "bounds-changing"
	EventBoundsChanged       EventKind = "bounds-changed"
	EventClosing             EventKind = "closing"
	EventFocused             EventKind = "focused"
	EventGroupChanged        EventKind = "group-changed"
	EventHidden              EventKind = "hidden"
	EventShown               EventKind = "shown"
	EventMaximized           EventKind = "maximized"
	EventMinimized           EventKind = "minimized"
	EventRestored            EventKind = "restored"
)

// ChangeHint is the host's own guess at what a bounds change was.
type ChangeHint int

const (
	HintMove ChangeHint = iota
	HintResize
	HintMoveResize
)

// GroupReason is why a group-changed event was raised.
type GroupReason string

const (
	GroupJoin    GroupReason = "join"
	GroupLeave   GroupReason = "leave"
	GroupMerge   GroupReason = "merge"
	GroupDisband GroupReason = "disband"
)

// GroupEvent describes a native group membership change. Every member of an
// affected group receives the same report; Source names the window that
// actually changed.
type GroupEvent struct {
	Reason GroupReason `json:"reason"`
	Source Identity    `json:"source"`
	// SourceGroup is the membership of the source window's group after the
	// change (for leave: the group that was left).
	SourceGroup []Identity `json:"source_group"`
	Target      Identity   `json:"target"`
	TargetGroup []Identity `json:"target_group"`
}

// Event is a native window event delivered to a subscriber.
type Event struct {
	Kind   EventKind   `json:"kind"`
	Window Identity    `json:"window"`
	Bounds geom.Rect   `json:"bounds"`
	Hint   ChangeHint  `json:"hint"`
	Group  *GroupEvent `json:"group,omitempty"`
}
