package game

// EndStatus is a participant's state when the round ended
type EndStatus string

const (
	EndAlive    EndStatus = "ALIVE"
	EndDead     EndStatus = "DEAD"
	EndLeft     EndStatus = "LEFT"
	EndLeftDead EndStatus = "LEFT_DEAD"
)

// RoundEndRecord is the durable outcome of one participant for the last round
type RoundEndRecord struct {
	Participant ParticipantID
	Name        string
	Role        RoleID
	Status      EndStatus
	Winner      bool
}

func endStatus(dead, connected bool) EndStatus {
	switch {
	case dead && connected:
		return EndDead
	case dead:
		return EndLeftDead
	case connected:
		return EndAlive
	default:
		return EndLeft
	}
}

// winningFaction is the faction a rule-derived win status rewards
func winningFaction(status WinStatus) (Faction, bool) {
	switch status {
	case WinKillers:
		return FactionKiller, true
	case WinPassengers, WinTime:
		return FactionCivilian, true
	default:
		return FactionNone, false
	}
}

// snapshotWinner reports whether the winner flag is authoritative for status
func snapshotWinner(status WinStatus) bool {
	return status == WinNeutral || status == WinLooseEnd
}

// RecordWin snapshots a faction win (KILLERS, PASSENGERS, TIME) or NONE for
// every participant who held a role this round, connected or not.
func RecordWin(c *Context, status WinStatus) {
	faction, _ := winningFaction(status)
	record(c, status, func(id ParticipantID, role *Role) bool {
		return faction != FactionNone && role.Faction() == faction
	})
}

// RecordNeutralWin snapshots a win by a single designated participant
func RecordNeutralWin(c *Context, status WinStatus, winner ParticipantID) {
	c.Session.NeutralWinner = winner
	record(c, status, func(id ParticipantID, _ *Role) bool {
		return id == winner
	})
}

func record(c *Context, status WinStatus, won func(ParticipantID, *Role) bool) {
	s := c.Session
	holders := s.RoleHolders()
	records := make([]RoundEndRecord, 0, len(holders))
	for _, id := range holders {
		role := s.Roles[id]
		records = append(records, RoundEndRecord{
			Participant: id,
			Name:        s.Name(id),
			Role:        role.ID,
			Status:      endStatus(s.IsDead(id), c.World.Connected(id)),
			Winner:      won(id, role),
		})
	}
	s.Win = status
	s.Records = records
}

// Record returns the stored record for a participant
func (s *Session) Record(id ParticipantID) (RoundEndRecord, bool) {
	for _, r := range s.Records {
		if r.Participant == id {
			return r, true
		}
	}
	return RoundEndRecord{}, false
}

// DidWin reports whether the participant won the last recorded round.
// Faction wins are re-derived from the stored role id; neutral-style wins
// read the stored winner flag.
func DidWin(s *Session, registry *Registry, id ParticipantID) bool {
	if s.Win == WinNone {
		return false
	}
	rec, ok := s.Record(id)
	if !ok {
		return false
	}
	if snapshotWinner(s.Win) {
		return rec.Winner
	}
	faction, ok := winningFaction(s.Win)
	if !ok {
		return false
	}
	role, ok := registry.Lookup(rec.Role)
	if !ok {
		return false
	}
	return role.Faction() == faction
}
