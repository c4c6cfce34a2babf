package game

import (
	"fmt"
	"sort"
)

// Mode drives gameplay while a round is running. The machine calls
// InitializeRound once after roles are dealt and FinalizeRound once before
// the session returns to INACTIVE.
type Mode interface {
	ID() string
	MinimumParticipants() int
	DefaultRoundSeconds() int
	Targets(s *Session, participants int) Targets

	InitializeRound(m *Machine)
	// TickCommon runs on every step, including presentation-only ones
	TickCommon(m *Machine)
	// Tick runs only on authoritative steps
	Tick(m *Machine)
	FinalizeRound(m *Machine)
}

// Modes is the set of playable modes
type Modes struct {
	byID        map[string]Mode
	defaultMode string
}

// NewModes registers modes; the first one is the default
func NewModes(modes ...Mode) *Modes {
	ms := &Modes{byID: make(map[string]Mode)}
	for _, mode := range modes {
		if ms.defaultMode == "" {
			ms.defaultMode = mode.ID()
		}
		ms.byID[mode.ID()] = mode
	}
	return ms
}

// DefaultModes returns the built-in modes with murder as default
func DefaultModes() *Modes {
	return NewModes(MurderMode{}, LooseEndsMode{}, DiscoveryMode{})
}

// SetDefault changes the fallback mode
func (ms *Modes) SetDefault(id string) error {
	if _, ok := ms.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMode, id)
	}
	ms.defaultMode = id
	return nil
}

// Lookup finds a mode by id
func (ms *Modes) Lookup(id string) (Mode, bool) {
	mode, ok := ms.byID[id]
	return mode, ok
}

// Default returns the fallback mode
func (ms *Modes) Default() Mode {
	return ms.byID[ms.defaultMode]
}

// IDs returns the registered mode ids sorted
func (ms *Modes) IDs() []string {
	ids := make([]string, 0, len(ms.byID))
	for id := range ms.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
