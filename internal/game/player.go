package game

import (
	"github.com/google/uuid"
)

// ParticipantID identifies a participant across reconnects
type ParticipantID = uuid.UUID

// Participant is a connected participant as seen by the session
type Participant struct {
	ID   ParticipantID
	Name string
}

// Location is where a participant currently stands in the environment
type Location string

const (
	LocationLobby    Location = "lobby"
	LocationReady    Location = "ready"
	LocationPlayArea Location = "play"
	LocationOutside  Location = "outside"
)

// ResetStatus is the state of the last play-area reset attempt
type ResetStatus int

const (
	ResetIdle ResetStatus = iota
	ResetPending
	ResetDone
	ResetFailed
)

// World is the play environment the session runs in. Lookups are live:
// a participant who disconnected is simply no longer Connected.
type World interface {
	// Participants returns connected participants in join order
	Participants() []Participant
	Connected(id ParticipantID) bool
	// ReadyParticipants returns connected participants standing in the
	// staging area who have not opted out of play
	ReadyParticipants() []Participant
	VoteInProgress() bool

	Location(id ParticipantID) Location
	Move(id ParticipantID, to Location)
	SetObserver(id ParticipantID, observer bool)

	// BeginReset starts restoring the play area; ResetStatus is polled on later steps
	BeginReset()
	ResetStatus() ResetStatus
}
