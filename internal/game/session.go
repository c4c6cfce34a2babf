package game

import (
	"sort"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a game session
type Status string

const (
	StatusInactive Status = "INACTIVE"
	StatusStarting Status = "STARTING"
	StatusActive   Status = "ACTIVE"
	StatusStopping Status = "STOPPING"
)

// WinStatus is how the last round ended. Order matters: persisted data may use the ordinal.
type WinStatus string

const (
	WinNone       WinStatus = "NONE"
	WinKillers    WinStatus = "KILLERS"
	WinPassengers WinStatus = "PASSENGERS"
	WinTime       WinStatus = "TIME"
	WinLooseEnd   WinStatus = "LOOSE_END"
	WinNeutral    WinStatus = "NEUTRAL"
)

var winStatuses = []WinStatus{WinNone, WinKillers, WinPassengers, WinTime, WinLooseEnd, WinNeutral}

// ShootInnocentPolicy is the punishment for shooting a civilian
type ShootInnocentPolicy string

const (
	PolicyDropGun          ShootInnocentPolicy = "drop_gun"
	PolicyPreventGunPickup ShootInnocentPolicy = "prevent_gun_pickup"
	PolicyKillShooter      ShootInnocentPolicy = "kill_shooter"
)

// Ratios are the faction dividends: one slot per Ratio participants
type Ratios struct {
	Killer    int
	Vigilante int
	Neutral   int
}

// Session is the authoritative state of one play environment
type Session struct {
	ID     string
	Status Status
	Fade   int
	Mode   string

	// Round is incremented at each round initialization and feeds the shuffle seed
	Round int
	Seed  uint64

	Roles  map[ParticipantID]*Role
	Dead   map[ParticipantID]bool
	Names  map[ParticipantID]string
	Forced *ForcedLedger

	KillerCount         int
	Ratios              Ratios
	BoundToPlayArea     bool
	PsychoCount         int
	ShootInnocentPolicy ShootInnocentPolicy
	GunPickupPrevented  map[ParticipantID]bool

	RoundSeconds     int
	RoundTicks       int
	MinReadyOverride int

	Win           WinStatus
	NeutralWinner ParticipantID
	Records       []RoundEndRecord
}

// NewSession creates an inactive session
func NewSession(id, mode string, ratios Ratios, seed uint64) *Session {
	return &Session{
		ID:                  id,
		Status:              StatusInactive,
		Mode:                mode,
		Seed:                seed,
		Roles:               make(map[ParticipantID]*Role),
		Dead:                make(map[ParticipantID]bool),
		Names:               make(map[ParticipantID]string),
		Forced:              NewForcedLedger(),
		Ratios:              ratios,
		BoundToPlayArea:     true,
		ShootInnocentPolicy: PolicyDropGun,
		GunPickupPrevented:  make(map[ParticipantID]bool),
		Win:                 WinNone,
	}
}

// IsRunning reports whether gameplay is ticking
func (s *Session) IsRunning() bool {
	return s.Status == StatusActive || s.Status == StatusStopping
}

// RoleOf returns the participant's role, or nil
func (s *Session) RoleOf(id ParticipantID) *Role {
	return s.Roles[id]
}

// HasAnyRole reports whether the participant holds a non-sentinel role
func (s *Session) HasAnyRole(id ParticipantID) bool {
	role := s.Roles[id]
	return role != nil && role.ID != NoRoleID
}

// Assign records a role for a participant
func (s *Session) Assign(id ParticipantID, role *Role) {
	s.Roles[id] = role
}

// IsDead reports whether the participant died this round
func (s *Session) IsDead(id ParticipantID) bool {
	return s.Dead[id]
}

// IsAlive reports whether the participant holds a role and is not dead
func (s *Session) IsAlive(id ParticipantID) bool {
	return s.HasAnyRole(id) && !s.Dead[id]
}

// Name returns the cached identity for a participant
func (s *Session) Name(id ParticipantID) string {
	if name, ok := s.Names[id]; ok {
		return name
	}
	return id.String()
}

// RoleHolders returns every participant holding a non-sentinel role, sorted by id
func (s *Session) RoleHolders() []ParticipantID {
	ids := make([]ParticipantID, 0, len(s.Roles))
	for id := range s.Roles {
		if s.HasAnyRole(id) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids
}

// Alive returns living role holders of a faction, sorted by id
func (s *Session) Alive(faction Faction) []ParticipantID {
	var ids []ParticipantID
	for _, id := range s.RoleHolders() {
		if !s.Dead[id] && s.Roles[id].Faction() == faction {
			ids = append(ids, id)
		}
	}
	return ids
}

// clearRound resets everything scoped to a single round
func (s *Session) clearRound() {
	s.Roles = make(map[ParticipantID]*Role)
	s.Dead = make(map[ParticipantID]bool)
	s.GunPickupPrevented = make(map[ParticipantID]bool)
	s.PsychoCount = 0
	s.NeutralWinner = uuid.Nil
}

// pruneNames drops cached identities of participants who neither hold a
// role nor appear in the last round's records
func (s *Session) pruneNames() {
	keep := make(map[ParticipantID]bool, len(s.Roles)+len(s.Records))
	for id := range s.Roles {
		keep[id] = true
	}
	for _, r := range s.Records {
		keep[r.Participant] = true
	}
	for id := range s.Names {
		if !keep[id] {
			delete(s.Names, id)
		}
	}
}

func sortIDs(ids []ParticipantID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
