package window

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winlink/internal/platform"
)

func groupEvent(to *Entity, g platform.GroupEvent) platform.Event {
	return platform.Event{Kind: platform.EventGroupChanged, Window: to.Identity(), Group: &g}
}

func TestGroupLeave_OnlySourceWindowActs(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	c := h.window("c", rect(200, 0, 100, 100))
	g := h.group(a, b, c)
	require.Equal(t, []platform.Identity{a.Identity(), b.Identity(), c.Identity()}, h.surf.GroupOf(a.Identity()))

	require.NoError(t, c.Unsnap(context.Background()))

	assert.Same(t, g, a.SnapGroup())
	assert.Same(t, g, b.SnapGroup())
	assert.Equal(t, []platform.Identity{a.Identity(), b.Identity()}, g.Identities())
	assert.NotSame(t, g, c.SnapGroup())
	assert.Equal(t, []platform.Identity{c.Identity()}, c.SnapGroup().Identities())
	assert.Same(t, g, c.PrevGroup())
}

func TestGroupLeave_MismatchedSourceGroupIgnored(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	g := h.group(a, b)

	h.surf.Emit(groupEvent(a, platform.GroupEvent{
		Reason:      platform.GroupLeave,
		Source:      a.Identity(),
		SourceGroup: []platform.Identity{{Owner: "app", Name: "stranger"}},
	}))
	assert.Same(t, g, a.SnapGroup())
}

func TestGroupChange_PostponedDuringTransaction(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	g := h.group(a, b)
	h.tracker.set(b.Identity(), true)

	require.NoError(t, b.Unsnap(context.Background()))

	assert.Same(t, g, b.SnapGroup(), "logical group survives a transaction's detach")
	assert.Equal(t, 1, h.tracker.count(b.Identity()))
	assert.Equal(t, 0, h.tracker.count(a.Identity()), "duplicated reports are dropped before the transaction check")
}

func TestGroupJoin_MovesIntoTargetGroup(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	target := b.SnapGroup()

	h.surf.Emit(groupEvent(a, platform.GroupEvent{
		Reason:      platform.GroupJoin,
		Source:      a.Identity(),
		Target:      b.Identity(),
		TargetGroup: []platform.Identity{b.Identity(), a.Identity()},
	}))

	assert.Same(t, target, a.SnapGroup())
	assert.Equal(t, []platform.Identity{a.Identity(), b.Identity()}, target.Identities())
}

func TestGroupJoin_AlreadyMatchingIsNoop(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	g := h.group(a, b)
	prev := a.PrevGroup()

	h.surf.Emit(groupEvent(a, platform.GroupEvent{
		Reason:      platform.GroupJoin,
		Source:      a.Identity(),
		Target:      b.Identity(),
		TargetGroup: []platform.Identity{b.Identity(), a.Identity()},
	}))
	assert.Same(t, g, a.SnapGroup())
	assert.Same(t, prev, a.PrevGroup())
}

func TestGroupMerge_MovesWholeGroupEvenInTransaction(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	c := h.window("c", rect(200, 0, 100, 100))
	h.group(a, b)
	h.tracker.set(a.Identity(), true)

	h.surf.Emit(groupEvent(a, platform.GroupEvent{
		Reason: platform.GroupMerge,
		Source: a.Identity(),
		Target: c.Identity(),
	}))

	dest := c.SnapGroup()
	assert.Same(t, dest, a.SnapGroup())
	assert.Same(t, dest, b.SnapGroup())
	assert.Equal(t, []platform.Identity{a.Identity(), b.Identity(), c.Identity()}, dest.Identities())
	assert.Equal(t, 0, h.tracker.count(a.Identity()))
}

func TestGroupChange_DisbandAndUnknownReasonsIgnored(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	g := h.group(a, b)

	for _, reason := range []platform.GroupReason{platform.GroupDisband, "teleport"} {
		h.surf.Emit(groupEvent(a, platform.GroupEvent{Reason: reason, Source: a.Identity()}))
		assert.Same(t, g, a.SnapGroup(), "reason %s", reason)
	}
}

func TestGroupChange_NativeMergeReportsMerge(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	c := h.window("c", rect(200, 0, 100, 100))
	h.group(a, b)

	// A merge started outside the service: a's native group joins c's.
	require.NoError(t, h.surf.MergeGroup(context.Background(), a.Identity(), c.Identity()))

	dest := c.SnapGroup()
	assert.Equal(t, []platform.Identity{a.Identity(), b.Identity(), c.Identity()}, dest.Identities())
	assert.Same(t, dest, b.SnapGroup())
}
