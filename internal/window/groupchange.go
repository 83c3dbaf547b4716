package window

import (
	"context"

	"github.com/1broseidon/winlink/internal/platform"
)

// handleGroupChange reacts to a native group report. Every member of an
// affected group receives the same report, so only the copy whose source is
// this window is acted on.
func (e *Entity) handleGroupChange(ctx context.Context, ev *platform.GroupEvent) {
	if ev == nil || ev.Source != e.id {
		return
	}
	log := e.logger.With("reason", string(ev.Reason))

	// Merges are always started outside the service.
	if ev.Reason != platform.GroupMerge && e.cfg.Tracker.InTransaction(e.id) {
		e.cfg.Tracker.Postpone(e.id)
		log.Debug("group change postponed by transaction")
		return
	}

	switch ev.Reason {
	case platform.GroupLeave:
		current := e.SnapGroup().Identities()
		expected := append(append([]platform.Identity(nil), ev.SourceGroup...), e.id)
		if !platform.SameIdentitySet(current, expected) {
			log.Debug("leave does not match model group, ignoring")
			return
		}
		e.SetSnapGroup(NewSnapGroup())
		log.Debug("left snap group")

	case platform.GroupJoin:
		if platform.SameIdentitySet(e.SnapGroup().Identities(), ev.TargetGroup) {
			return
		}
		target, ok := e.lookup(ev.Target)
		if !ok {
			log.Warn("join target is not registered", "target", ev.Target)
			return
		}
		e.SetSnapGroup(target.SnapGroup())
		log.Debug("joined snap group", "target", ev.Target)

	case platform.GroupMerge:
		target, ok := e.lookup(ev.Target)
		if !ok {
			log.Warn("merge target is not registered", "target", ev.Target)
			return
		}
		dest := target.SnapGroup()
		for _, w := range e.SnapGroup().Windows() {
			w.SetSnapGroup(dest)
		}
		log.Debug("merged snap group", "target", ev.Target, "members", dest.Len())

	case platform.GroupDisband:
		// Already handled by the leave, join or merge that caused it.

	default:
		log.Warn("unexpected group change reason")
	}
}

func (e *Entity) lookup(id platform.Identity) (*Entity, bool) {
	if e.cfg.Resolver == nil {
		return nil, false
	}
	return e.cfg.Resolver.Lookup(id)
}
