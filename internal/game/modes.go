package game

import "github.com/google/uuid"

// tickRoundTimer counts the round timer down while the round is active
func tickRoundTimer(m *Machine) {
	s := m.Session()
	if s.Status == StatusActive && s.RoundTicks > 0 {
		s.RoundTicks--
	}
}

// contenders returns living role holders of a faction who are still
// connected. Disconnected holders keep their role for the recorder but
// cannot hold a round open.
func contenders(m *Machine, faction Faction) []ParticipantID {
	w := m.World()
	var ids []ParticipantID
	for _, id := range m.Session().Alive(faction) {
		if w.Connected(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// MurderMode is the standard mode: killers against passengers with optional neutrals
type MurderMode struct{}

func (MurderMode) ID() string               { return "murder" }
func (MurderMode) MinimumParticipants() int { return 4 }
func (MurderMode) DefaultRoundSeconds() int { return 600 }

func (MurderMode) Targets(s *Session, participants int) Targets {
	return ComputeTargets(s, participants)
}

func (MurderMode) InitializeRound(*Machine) {}
func (MurderMode) FinalizeRound(*Machine)   {}

func (MurderMode) TickCommon(m *Machine) {
	tickRoundTimer(m)
}

func (MurderMode) Tick(m *Machine) {
	s := m.Session()
	if s.Status != StatusActive {
		return
	}
	killers := contenders(m, FactionKiller)
	civilians := contenders(m, FactionCivilian)
	neutrals := contenders(m, FactionNeutral)

	switch {
	case len(killers) == 0 && len(civilians) == 0 && len(neutrals) == 1:
		m.WinNeutral(WinNeutral, neutrals[0])
	case len(killers) == 0:
		m.Win(WinPassengers)
	case len(civilians) == 0:
		m.Win(WinKillers)
	case s.RoundTicks <= 0:
		m.Win(WinTime)
	}
}

// LooseEndsMode deals the loose end role to everyone; the last survivor wins
type LooseEndsMode struct{}

func (LooseEndsMode) ID() string               { return "loose_ends" }
func (LooseEndsMode) MinimumParticipants() int { return 2 }
func (LooseEndsMode) DefaultRoundSeconds() int { return 300 }

func (LooseEndsMode) Targets(_ *Session, participants int) Targets {
	return Targets{
		Killers:          participants,
		GenericKiller:    LooseEndID,
		NoSpecialKillers: true,
	}
}

func (LooseEndsMode) InitializeRound(*Machine) {}
func (LooseEndsMode) FinalizeRound(*Machine)   {}

func (LooseEndsMode) TickCommon(m *Machine) {
	tickRoundTimer(m)
}

func (LooseEndsMode) Tick(m *Machine) {
	s := m.Session()
	if s.Status != StatusActive {
		return
	}
	alive := contenders(m, FactionKiller)
	switch {
	case len(alive) == 1:
		m.WinNeutral(WinLooseEnd, alive[0])
	case len(alive) == 0:
		m.WinNeutral(WinLooseEnd, uuid.Nil)
	case s.RoundTicks <= 0:
		m.Win(WinTime)
	}
}

// DiscoveryMode lets participants explore as civilians. It has no win
// condition; an operator ends the round.
type DiscoveryMode struct{}

func (DiscoveryMode) ID() string               { return "discovery" }
func (DiscoveryMode) MinimumParticipants() int { return 1 }
func (DiscoveryMode) DefaultRoundSeconds() int { return 0 }

func (DiscoveryMode) Targets(*Session, int) Targets { return Targets{} }

func (DiscoveryMode) InitializeRound(*Machine) {}
func (DiscoveryMode) TickCommon(*Machine)      {}
func (DiscoveryMode) Tick(*Machine)            {}
func (DiscoveryMode) FinalizeRound(*Machine)   {}
