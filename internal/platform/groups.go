package platform

// groupTable models native window groups in-process for hosts that have no
// grouping of their own. Every known window is in exactly one group. It is
// not safe for concurrent use.
type groupTable struct {
	next int
	of   map[Identity]int
}

func newGroupTable() groupTable {
	return groupTable{of: make(map[Identity]int)}
}

// add puts id into a fresh singleton group.
func (g *groupTable) add(id Identity) {
	g.next++
	g.of[id] = g.next
}

func (g *groupTable) remove(id Identity) {
	delete(g.of, id)
}

func (g *groupTable) has(id Identity) bool {
	_, ok := g.of[id]
	return ok
}

// members returns the sorted group of id, id included.
func (g *groupTable) members(id Identity) []Identity {
	grp, ok := g.of[id]
	if !ok {
		return nil
	}
	return g.membersOf(grp)
}

func (g *groupTable) membersOf(grp int) []Identity {
	var out []Identity
	for id, n := range g.of {
		if n == grp {
			out = append(out, id)
		}
	}
	SortIdentities(out)
	return out
}

// merge moves the whole group of id into the group of target and returns the
// reports to deliver. A lone window reports a join; a window that brought
// other members with it reports a merge. Every member of the resulting group
// receives the report. ok is false when target is unknown.
func (g *groupTable) merge(id, target Identity) (events []Event, ok bool) {
	tg, ok := g.of[target]
	if !ok {
		return nil, false
	}
	var moved []Identity
	if sg, known := g.of[id]; known && sg != tg {
		moved = g.membersOf(sg)
		for other, n := range g.of {
			if n == sg {
				g.of[other] = tg
			}
		}
	}
	members := g.membersOf(tg)
	reason := GroupJoin
	if len(moved) > 1 {
		reason = GroupMerge
	}
	for _, member := range members {
		events = append(events, Event{Kind: EventGroupChanged, Window: member, Group: &GroupEvent{
			Reason:      reason,
			Source:      id,
			SourceGroup: moved,
			Target:      target,
			TargetGroup: members,
		}})
	}
	return events, true
}

// leave gives id a fresh group. The leaver and every remaining member
// receive a leave report; a lone survivor also receives a disband. Leaving a
// singleton group reports nothing.
func (g *groupTable) leave(id Identity) []Event {
	old, ok := g.of[id]
	if !ok || len(g.membersOf(old)) <= 1 {
		return nil
	}
	g.add(id)
	remaining := g.membersOf(old)

	report := &GroupEvent{Reason: GroupLeave, Source: id, SourceGroup: remaining}
	events := []Event{{Kind: EventGroupChanged, Window: id, Group: report}}
	for _, member := range remaining {
		events = append(events, Event{Kind: EventGroupChanged, Window: member, Group: report})
	}
	if len(remaining) == 1 {
		events = append(events, Event{Kind: EventGroupChanged, Window: remaining[0], Group: &GroupEvent{
			Reason:      GroupDisband,
			Source:      remaining[0],
			SourceGroup: remaining,
		}})
	}
	return events
}
