package game

import (
	"math/rand/v2"
)

// Targets are the per-faction slot counts for one round. Civilians take the remainder.
type Targets struct {
	Killers    int
	Vigilantes int
	Neutrals   int

	// GenericKiller replaces the fallback killer role when set
	GenericKiller RoleID
	// NoSpecialKillers deals only the generic killer role
	NoSpecialKillers bool
}

// Assignment is one granted role, reported in grant order
type Assignment struct {
	Participant ParticipantID
	Role        *Role
	Forced      bool
}

// allocation is the working state of one AssignRoles run
type allocation struct {
	session  *Session
	registry *Registry
	rng      *rand.Rand
	ready    []Participant
	used     map[RoleID]bool
	granted  []Assignment
}

// AssignRoles deals a role to every ready participant. Forced roles from the
// session ledger go first and the ledger is cleared; then killers,
// vigilantes, neutrals and finally civilians fill the rest. rng is used
// only to shuffle.
func AssignRoles(c *Context, ready []Participant, t Targets, rng *rand.Rand) []Assignment {
	a := &allocation{
		session:  c.Session,
		registry: c.Registry,
		rng:      rng,
		ready:    ready,
		used:     make(map[RoleID]bool),
	}
	appear := AppearanceContext{Participants: len(ready), Mode: c.Session.Mode}

	a.assignForced()

	killer := a.registry.Role(KillerID)
	if t.GenericKiller != "" {
		if role, ok := a.registry.Lookup(t.GenericKiller); ok {
			killer = role
		}
	}
	var killerSpecials []*Role
	if !t.NoSpecialKillers {
		killerSpecials = a.registry.Specials(FactionKiller, appear)
	}
	a.fill(t.Killers-a.countFaction(FactionKiller), killerSpecials, killer)

	vigilante := a.registry.Role(VigilanteID)
	a.fill(t.Vigilantes-a.countRole(VigilanteID), nil, vigilante)

	a.fill(t.Neutrals-a.countFaction(FactionNeutral), a.registry.Specials(FactionNeutral, appear), nil)

	civilian := a.registry.Role(CivilianID)
	a.fill(len(a.ready), a.registry.Specials(FactionCivilian, appear), civilian)

	return a.granted
}

func (a *allocation) assignForced() {
	readySet := make(map[ParticipantID]bool, len(a.ready))
	for _, p := range a.ready {
		readySet[p.ID] = true
	}
	for _, f := range a.session.Forced.Assignments() {
		if !readySet[f.Participant] || a.session.HasAnyRole(f.Participant) {
			continue
		}
		role, ok := a.registry.Lookup(f.Role)
		if !ok || role.ID == NoRoleID {
			continue
		}
		// a special role forced onto two participants goes to the first one queued
		if role.Special() && a.used[role.ID] {
			continue
		}
		a.grant(f.Participant, role, true)
	}
	a.session.Forced.Clear()
}

// fill assigns up to slots candidates, drawing specials first and then the
// generic role. A nil generic ends the phase once specials run out.
func (a *allocation) fill(slots int, specials []*Role, generic *Role) {
	if slots <= 0 {
		return
	}
	pool := a.unusedShuffled(specials)
	candidates := a.candidates()
	for slots > 0 && len(candidates) > 0 {
		var role *Role
		if len(pool) > 0 {
			role, pool = pool[0], pool[1:]
		} else if generic != nil {
			role = generic
		} else {
			return
		}
		a.grant(candidates[0], role, false)
		candidates = candidates[1:]
		slots--
	}
}

func (a *allocation) grant(id ParticipantID, role *Role, forced bool) {
	a.session.Assign(id, role)
	if role.Special() {
		a.used[role.ID] = true
	}
	a.granted = append(a.granted, Assignment{Participant: id, Role: role, Forced: forced})
}

// candidates returns the still unassigned ready participants, shuffled
func (a *allocation) candidates() []ParticipantID {
	var ids []ParticipantID
	for _, p := range a.ready {
		if !a.session.HasAnyRole(p.ID) {
			ids = append(ids, p.ID)
		}
	}
	a.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

func (a *allocation) unusedShuffled(roles []*Role) []*Role {
	var pool []*Role
	for _, role := range roles {
		if !a.used[role.ID] {
			pool = append(pool, role)
		}
	}
	a.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

func (a *allocation) countFaction(f Faction) int {
	n := 0
	for _, p := range a.ready {
		if role := a.session.RoleOf(p.ID); role != nil && role.Faction() == f {
			n++
		}
	}
	return n
}

func (a *allocation) countRole(id RoleID) int {
	n := 0
	for _, p := range a.ready {
		if role := a.session.RoleOf(p.ID); role != nil && role.ID == id {
			n++
		}
	}
	return n
}

// ComputeTargets derives faction slot counts from the session's ratios.
// An explicit killer count overrides the killer ratio.
func ComputeTargets(s *Session, participants int) Targets {
	var t Targets
	if participants <= 0 {
		return t
	}
	switch {
	case s.KillerCount > 0:
		t.Killers = s.KillerCount
	case s.Ratios.Killer > 0:
		t.Killers = max(1, participants/s.Ratios.Killer)
	default:
		t.Killers = 1
	}
	if s.Ratios.Vigilante > 0 {
		t.Vigilantes = max(1, participants/s.Ratios.Vigilante)
	}
	if s.Ratios.Neutral > 0 {
		t.Neutrals = participants / s.Ratios.Neutral
	}
	return t
}
