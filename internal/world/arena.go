// Package world is the in-memory play environment a session runs in.
package world

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"trainmystery/internal/game"
)

var (
	ErrArenaFull          = errors.New("environment is full")
	ErrDuplicateName      = errors.New("a participant with that name is already connected")
	ErrUnknownParticipant = errors.New("participant is not connected")
	ErrUnknownLocation    = errors.New("unknown location")
	ErrNameRequired       = errors.New("participant name is required")
)

// IsRejection reports whether err is a refused participant action
func IsRejection(err error) bool {
	for _, target := range []error{ErrArenaFull, ErrDuplicateName, ErrUnknownParticipant, ErrUnknownLocation, ErrNameRequired} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type member struct {
	game.Participant
	JoinedAt time.Time
	Location game.Location
	Observer bool
	OptedOut bool
}

// Arena tracks connected participants, their locations and the play-area
// reset. It is not safe for concurrent use; the simulation loop owns it.
type Arena struct {
	ID              string
	MaxParticipants int
	// ResetTicks is how many steps a play-area reset takes
	ResetTicks int

	members map[game.ParticipantID]*member
	order   []game.ParticipantID
	vote    bool

	resetStatus    game.ResetStatus
	resetRemaining int
	failResets     int
}

// NewArena creates an empty environment
func NewArena(id string, maxParticipants, resetTicks int) *Arena {
	return &Arena{
		ID:              id,
		MaxParticipants: maxParticipants,
		ResetTicks:      resetTicks,
		members:         make(map[game.ParticipantID]*member),
	}
}

// Join connects a participant to the lobby. Rejoining with the same id reconnects.
func (a *Arena) Join(p game.Participant) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrNameRequired
	}
	p.Name = name
	for _, id := range a.order {
		if id != p.ID && strings.EqualFold(a.members[id].Name, name) {
			return ErrDuplicateName
		}
	}
	if _, ok := a.members[p.ID]; ok {
		a.members[p.ID].Name = name
		return nil
	}
	if a.MaxParticipants > 0 && len(a.members) >= a.MaxParticipants {
		return ErrArenaFull
	}
	a.members[p.ID] = &member{
		Participant: p,
		JoinedAt:    time.Now(),
		Location:    game.LocationLobby,
	}
	a.order = append(a.order, p.ID)
	return nil
}

// Leave disconnects a participant
func (a *Arena) Leave(id game.ParticipantID) {
	if _, ok := a.members[id]; !ok {
		return
	}
	delete(a.members, id)
	for i, other := range a.order {
		if other == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// Participants returns connected participants in join order
func (a *Arena) Participants() []game.Participant {
	out := make([]game.Participant, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.members[id].Participant)
	}
	return out
}

// Connected reports whether the participant is currently connected
func (a *Arena) Connected(id game.ParticipantID) bool {
	_, ok := a.members[id]
	return ok
}

// ReadyParticipants returns participants standing in the staging area who have not opted out
func (a *Arena) ReadyParticipants() []game.Participant {
	var out []game.Participant
	for _, id := range a.order {
		m := a.members[id]
		if m.Location == game.LocationReady && !m.OptedOut {
			out = append(out, m.Participant)
		}
	}
	return out
}

// VoteInProgress reports whether a map vote is running
func (a *Arena) VoteInProgress() bool {
	return a.vote
}

// SetVote starts or ends a map vote
func (a *Arena) SetVote(active bool) {
	a.vote = active
}

// Location returns where a participant stands; disconnected participants are nowhere
func (a *Arena) Location(id game.ParticipantID) game.Location {
	if m, ok := a.members[id]; ok {
		return m.Location
	}
	return ""
}

// Move relocates a connected participant
func (a *Arena) Move(id game.ParticipantID, to game.Location) {
	if m, ok := a.members[id]; ok {
		m.Location = to
	}
}

// Walk is a participant-initiated move
func (a *Arena) Walk(id game.ParticipantID, to game.Location) error {
	switch to {
	case game.LocationLobby, game.LocationReady, game.LocationPlayArea, game.LocationOutside:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLocation, to)
	}
	if !a.Connected(id) {
		return ErrUnknownParticipant
	}
	a.Move(id, to)
	return nil
}

// SetObserver puts a participant into or out of observation mode
func (a *Arena) SetObserver(id game.ParticipantID, observer bool) {
	if m, ok := a.members[id]; ok {
		m.Observer = observer
	}
}

// Observer reports whether a participant is observing
func (a *Arena) Observer(id game.ParticipantID) bool {
	m, ok := a.members[id]
	return ok && m.Observer
}

// SetOptOut marks a participant as not taking part in rounds
func (a *Arena) SetOptOut(id game.ParticipantID, optOut bool) error {
	m, ok := a.members[id]
	if !ok {
		return ErrUnknownParticipant
	}
	m.OptedOut = optOut
	return nil
}

// BeginReset starts restoring the play area
func (a *Arena) BeginReset() {
	a.resetStatus = game.ResetPending
	a.resetRemaining = a.ResetTicks
}

// ResetStatus reports the outcome of the last reset attempt
func (a *Arena) ResetStatus() game.ResetStatus {
	return a.resetStatus
}

// FailResets makes the next n reset attempts fail
func (a *Arena) FailResets(n int) {
	a.failResets = n
}

// Advance progresses a running reset by one step
func (a *Arena) Advance() {
	if a.resetStatus != game.ResetPending {
		return
	}
	if a.resetRemaining > 0 {
		a.resetRemaining--
		return
	}
	if a.failResets > 0 {
		a.failResets--
		a.resetStatus = game.ResetFailed
		return
	}
	a.resetStatus = game.ResetDone
}
