package game

// RoleGrant describes one role dealt at round initialization
type RoleGrant struct {
	Session      string
	Participant  ParticipantID
	Role         *Role
	Participants int
	Targets      Targets
	Ratios       Ratios
}

// Observer receives gameplay notifications in registration order
type Observer interface {
	RoleGranted(g RoleGrant)
	ParticipantKilled(session string, victim, killer ParticipantID)
}
