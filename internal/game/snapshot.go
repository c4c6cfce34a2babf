package game

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// SchemaVersion is the persisted session format written by Encode
const SchemaVersion = 2

type persistedForced struct {
	Role         RoleID   `json:"role"`
	Participants []string `json:"participants"`
}

type persistedRecord struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Role   RoleID    `json:"role"`
	Status EndStatus `json:"status"`
	Winner bool      `json:"winner"`
}

type persistedRatios struct {
	Killer    int `json:"killer"`
	Vigilante int `json:"vigilante"`
	Neutral   int `json:"neutral"`
}

type persistedSession struct {
	Version             int                 `json:"version"`
	ID                  string              `json:"id"`
	Status              Status              `json:"status"`
	Fade                int                 `json:"fade"`
	Mode                string              `json:"mode"`
	Round               int                 `json:"round"`
	Seed                string              `json:"seed"`
	Dead                []string            `json:"dead"`
	Roles               map[RoleID][]string `json:"roles"`
	Names               map[string]string   `json:"names"`
	Forced              []persistedForced   `json:"forced"`
	KillerCount         int                 `json:"killerCount"`
	Ratios              persistedRatios     `json:"ratios"`
	BoundToPlayArea     bool                `json:"boundToPlayArea"`
	PsychoCount         int                 `json:"psychoCount"`
	ShootInnocentPolicy ShootInnocentPolicy `json:"shootInnocentPolicy"`
	GunPickupPrevented  []string            `json:"gunPickupPrevented"`
	RoundSeconds        int                 `json:"roundSeconds"`
	RoundTicks          int                 `json:"roundTicks"`
	MinReadyOverride    int                 `json:"minReadyOverride"`
	Records             []persistedRecord   `json:"records"`
	Win                 WinStatus           `json:"win"`
	NeutralWinner       string              `json:"neutralWinner,omitempty"`
}

// Encode serializes a session in the current schema
func Encode(s *Session) ([]byte, error) {
	p := persistedSession{
		Version:             SchemaVersion,
		ID:                  s.ID,
		Status:              s.Status,
		Fade:                s.Fade,
		Mode:                s.Mode,
		Round:               s.Round,
		Seed:                strconv.FormatUint(s.Seed, 10),
		Roles:               make(map[RoleID][]string),
		Names:               make(map[string]string, len(s.Names)),
		KillerCount:         s.KillerCount,
		Ratios:              persistedRatios(s.Ratios),
		BoundToPlayArea:     s.BoundToPlayArea,
		PsychoCount:         s.PsychoCount,
		ShootInnocentPolicy: s.ShootInnocentPolicy,
		RoundSeconds:        s.RoundSeconds,
		RoundTicks:          s.RoundTicks,
		MinReadyOverride:    s.MinReadyOverride,
		Win:                 s.Win,
	}
	for _, id := range sortedKeys(s.Dead) {
		p.Dead = append(p.Dead, id.String())
	}
	for _, id := range sortedKeys(s.GunPickupPrevented) {
		p.GunPickupPrevented = append(p.GunPickupPrevented, id.String())
	}
	ids := make([]ParticipantID, 0, len(s.Roles))
	for id := range s.Roles {
		ids = append(ids, id)
	}
	sortIDs(ids)
	for _, id := range ids {
		role := s.Roles[id]
		p.Roles[role.ID] = append(p.Roles[role.ID], id.String())
	}
	for id, name := range s.Names {
		p.Names[id.String()] = name
	}
	for _, f := range s.Forced.Assignments() {
		n := len(p.Forced)
		if n == 0 || p.Forced[n-1].Role != f.Role {
			p.Forced = append(p.Forced, persistedForced{Role: f.Role})
			n++
		}
		p.Forced[n-1].Participants = append(p.Forced[n-1].Participants, f.Participant.String())
	}
	for _, r := range s.Records {
		p.Records = append(p.Records, persistedRecord{
			ID:     r.Participant.String(),
			Name:   r.Name,
			Role:   r.Role,
			Status: r.Status,
			Winner: r.Winner,
		})
	}
	if s.NeutralWinner != uuid.Nil {
		p.NeutralWinner = s.NeutralWinner.String()
	}
	return json.Marshal(p)
}

func sortedKeys(m map[ParticipantID]bool) []ParticipantID {
	ids := make([]ParticipantID, 0, len(m))
	for id, ok := range m {
		if ok {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids
}

// Defaults fill in whatever persisted data leaves out
type Defaults struct {
	ID          string
	Mode        string
	Ratios      Ratios
	FadeCeiling int
	Seed        uint64
}

// Decode restores a session from persisted data. It never fails: unknown
// or malformed values fall back to defaults and are reported as warnings.
func Decode(data []byte, registry *Registry, modes *Modes, d Defaults) (*Session, []string) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	s := NewSession(d.ID, d.Mode, d.Ratios, d.Seed)
	if !gjson.ValidBytes(data) {
		warn("persisted session is not valid JSON, starting fresh")
		return s, warnings
	}
	root := gjson.ParseBytes(data)

	if v := root.Get("version"); v.Exists() && v.Int() > SchemaVersion {
		warn("persisted schema version %d is newer than %d", v.Int(), SchemaVersion)
	}
	if v := root.Get("id"); v.String() != "" {
		s.ID = v.String()
	}

	switch st := Status(root.Get("status").String()); st {
	case StatusInactive, StatusStarting, StatusActive, StatusStopping:
		s.Status = st
	case "":
	default:
		warn("unknown status %q, using %s", st, StatusInactive)
	}

	s.Fade = min(max(int(root.Get("fade").Int()), 0), d.FadeCeiling)

	if mode := root.Get("mode").String(); mode != "" {
		if _, ok := modes.Lookup(mode); ok {
			s.Mode = mode
		} else {
			warn("unknown mode %q, using %s", mode, d.Mode)
		}
	}

	s.Round = int(root.Get("round").Int())
	if seed := root.Get("seed"); seed.Exists() {
		if n, err := strconv.ParseUint(seed.String(), 10, 64); err == nil {
			s.Seed = n
		} else {
			warn("invalid seed %q, using a fresh one", seed.String())
		}
	}

	parseID := func(field string, r gjson.Result) (ParticipantID, bool) {
		id, err := uuid.Parse(r.String())
		if err != nil {
			warn("%s: invalid participant id %q", field, r.String())
			return uuid.Nil, false
		}
		return id, true
	}

	for _, r := range root.Get("dead").Array() {
		if id, ok := parseID("dead", r); ok {
			s.Dead[id] = true
		}
	}
	for _, r := range root.Get("gunPickupPrevented").Array() {
		if id, ok := parseID("gunPickupPrevented", r); ok {
			s.GunPickupPrevented[id] = true
		}
	}

	root.Get("roles").ForEach(func(key, value gjson.Result) bool {
		role, ok := registry.Lookup(RoleID(key.String()))
		if !ok {
			warn("roles: unknown role %q dropped", key.String())
			return true
		}
		for _, r := range value.Array() {
			if id, ok := parseID("roles", r); ok {
				s.Roles[id] = role
			}
		}
		return true
	})

	root.Get("names").ForEach(func(key, value gjson.Result) bool {
		if id, ok := parseID("names", key); ok {
			s.Names[id] = value.String()
		}
		return true
	})

	for _, entry := range root.Get("forced").Array() {
		roleID := RoleID(entry.Get("role").String())
		if _, ok := registry.Lookup(roleID); !ok || roleID == NoRoleID {
			warn("forced: unknown role %q dropped", roleID)
			continue
		}
		for _, r := range entry.Get("participants").Array() {
			if id, ok := parseID("forced", r); ok {
				s.Forced.Add(roleID, id)
			}
		}
	}

	s.KillerCount = max(0, int(root.Get("killerCount").Int()))
	ratio := func(path string, fallback int) int {
		v := root.Get(path)
		if !v.Exists() {
			return fallback
		}
		if v.Int() < 0 {
			warn("%s: negative ratio %d, using %d", path, v.Int(), fallback)
			return fallback
		}
		return int(v.Int())
	}
	s.Ratios = Ratios{
		Killer:    ratio("ratios.killer", d.Ratios.Killer),
		Vigilante: ratio("ratios.vigilante", d.Ratios.Vigilante),
		Neutral:   ratio("ratios.neutral", d.Ratios.Neutral),
	}
	if s.Ratios.Killer == 0 {
		s.Ratios.Killer = d.Ratios.Killer
	}

	if v := root.Get("boundToPlayArea"); v.Exists() {
		s.BoundToPlayArea = v.Bool()
	}
	s.PsychoCount = max(0, int(root.Get("psychoCount").Int()))
	switch p := ShootInnocentPolicy(root.Get("shootInnocentPolicy").String()); p {
	case PolicyDropGun, PolicyPreventGunPickup, PolicyKillShooter:
		s.ShootInnocentPolicy = p
	case "":
	default:
		warn("unknown shoot-innocent policy %q, using %s", p, PolicyDropGun)
	}

	s.RoundSeconds = max(0, int(root.Get("roundSeconds").Int()))
	s.RoundTicks = max(0, int(root.Get("roundTicks").Int()))
	s.MinReadyOverride = max(0, int(root.Get("minReadyOverride").Int()))

	for _, r := range root.Get("records").Array() {
		id, ok := parseID("records", r.Get("id"))
		if !ok {
			continue
		}
		status := EndStatus(r.Get("status").String())
		switch status {
		case EndAlive, EndDead, EndLeft, EndLeftDead:
		default:
			warn("records: unknown end status %q, using %s", status, EndLeft)
			status = EndLeft
		}
		s.Records = append(s.Records, RoundEndRecord{
			Participant: id,
			Name:        r.Get("name").String(),
			Role:        RoleID(r.Get("role").String()),
			Status:      status,
			Winner:      r.Get("winner").Bool(),
		})
	}

	s.Win = decodeWinStatus(root.Get("win"), warn)
	if v := root.Get("neutralWinner"); v.Exists() {
		if id, ok := parseID("neutralWinner", v); ok {
			s.NeutralWinner = id
		}
	}
	return s, warnings
}

// decodeWinStatus accepts either the name or the ordinal
func decodeWinStatus(v gjson.Result, warn func(string, ...any)) WinStatus {
	switch v.Type {
	case gjson.Null:
		return WinNone
	case gjson.Number:
		n := int(v.Int())
		if n >= 0 && n < len(winStatuses) {
			return winStatuses[n]
		}
	case gjson.String:
		for _, ws := range winStatuses {
			if string(ws) == v.String() {
				return ws
			}
		}
	}
	warn("unknown win status %s, using %s", v.Raw, WinNone)
	return WinNone
}
