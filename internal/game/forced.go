package game

// ForcedAssignment is one queued guaranteed assignment
type ForcedAssignment struct {
	Role        RoleID
	Participant ParticipantID
}

type forcedEntry struct {
	role RoleID
	ids  []ParticipantID
}

// ForcedLedger queues participants for guaranteed roles next round.
// A participant appears under at most one role.
type ForcedLedger struct {
	entries []forcedEntry
}

// NewForcedLedger creates an empty ledger
func NewForcedLedger() *ForcedLedger {
	return &ForcedLedger{}
}

// Add queues id for role, removing it from every other role first
func (l *ForcedLedger) Add(role RoleID, id ParticipantID) {
	l.Remove(id)
	for i := range l.entries {
		if l.entries[i].role == role {
			l.entries[i].ids = append(l.entries[i].ids, id)
			return
		}
	}
	l.entries = append(l.entries, forcedEntry{role: role, ids: []ParticipantID{id}})
}

// Remove drops id from the ledger
func (l *ForcedLedger) Remove(id ParticipantID) {
	kept := l.entries[:0]
	for _, e := range l.entries {
		ids := e.ids[:0]
		for _, other := range e.ids {
			if other != id {
				ids = append(ids, other)
			}
		}
		if len(ids) > 0 {
			kept = append(kept, forcedEntry{role: e.role, ids: ids})
		}
	}
	l.entries = kept
}

// RoleFor returns the role queued for id
func (l *ForcedLedger) RoleFor(id ParticipantID) (RoleID, bool) {
	for _, e := range l.entries {
		for _, other := range e.ids {
			if other == id {
				return e.role, true
			}
		}
	}
	return "", false
}

// Participants returns the ids queued for role in insertion order
func (l *ForcedLedger) Participants(role RoleID) []ParticipantID {
	for _, e := range l.entries {
		if e.role == role {
			out := make([]ParticipantID, len(e.ids))
			copy(out, e.ids)
			return out
		}
	}
	return nil
}

// Assignments flattens the ledger in insertion order
func (l *ForcedLedger) Assignments() []ForcedAssignment {
	var out []ForcedAssignment
	for _, e := range l.entries {
		for _, id := range e.ids {
			out = append(out, ForcedAssignment{Role: e.role, Participant: id})
		}
	}
	return out
}

// Len returns the number of queued participants
func (l *ForcedLedger) Len() int {
	n := 0
	for _, e := range l.entries {
		n += len(e.ids)
	}
	return n
}

// Clear empties the ledger
func (l *ForcedLedger) Clear() {
	l.entries = nil
}
