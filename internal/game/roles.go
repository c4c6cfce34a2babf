package game

import (
	"fmt"
	"strings"
)

// Namespace is the namespace of the built-in role catalog
const Namespace = "trainmystery"

// RoleID is a namespaced role identifier such as "trainmystery:killer"
type RoleID string

// ParseRoleID validates a role id. A bare path is placed in the built-in namespace.
func ParseRoleID(s string) (RoleID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("role id is empty")
	}
	ns, path, found := strings.Cut(s, ":")
	if !found {
		ns, path = Namespace, s
	}
	if !validIDPart(ns) || !validIDPart(path) {
		return "", fmt.Errorf("invalid role id %q", s)
	}
	return RoleID(ns + ":" + path), nil
}

func validIDPart(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-', c == '.', c == '/':
		default:
			return false
		}
	}
	return true
}

// Path returns the part after the namespace
func (id RoleID) Path() string {
	_, path, found := strings.Cut(string(id), ":")
	if !found {
		return string(id)
	}
	return path
}

// Faction groups roles for win-condition matching. It is derived from role flags.
type Faction string

const (
	FactionNone     Faction = "NONE"
	FactionCivilian Faction = "CIVILIAN"
	FactionKiller   Faction = "KILLER"
	FactionNeutral  Faction = "NEUTRAL"
)

// Mood is the behavior tag shown to the role holder
type Mood string

const (
	MoodReal Mood = "real"
	MoodFake Mood = "fake"
	MoodNone Mood = "none"
)

// UnlimitedSprint marks a role without a sprint budget
const UnlimitedSprint = -1

// AppearanceContext is what an appearance condition may look at
type AppearanceContext struct {
	Participants int
	Mode         string
}

// Appearance decides whether a role may be dealt in the current round
type Appearance interface {
	ShouldAppear(ctx AppearanceContext) bool
}

// AppearanceFunc adapts a function to Appearance
type AppearanceFunc func(ctx AppearanceContext) bool

// ShouldAppear calls f
func (f AppearanceFunc) ShouldAppear(ctx AppearanceContext) bool {
	return f(ctx)
}

// MinParticipants appears only when at least n participants are ready
func MinParticipants(n int) Appearance {
	return AppearanceFunc(func(ctx AppearanceContext) bool {
		return ctx.Participants >= n
	})
}

// Role is an immutable role definition. Roles are shared by pointer from the registry.
type Role struct {
	ID             RoleID
	Color          int
	Innocent       bool
	CanUseKiller   bool
	Mood           Mood
	MaxSprintTicks int
	CanSeeTime     bool
	Generic        bool
	Appearance     Appearance
}

// Faction derives the role's faction from its flags
func (r *Role) Faction() Faction {
	switch {
	case r == nil || r.ID == NoRoleID:
		return FactionNone
	case r.Innocent:
		return FactionCivilian
	case r.CanUseKiller:
		return FactionKiller
	default:
		return FactionNeutral
	}
}

// Special reports whether the role is unique per round
func (r *Role) Special() bool {
	return r != nil && !r.Generic && r.ID != NoRoleID
}

// UnlimitedSprint reports whether the role can sprint without limit
func (r *Role) UnlimitedSprint() bool {
	return r.MaxSprintTicks == UnlimitedSprint
}

// CanAppear evaluates the appearance condition; roles without one always appear
func (r *Role) CanAppear(ctx AppearanceContext) bool {
	if r.Appearance == nil {
		return true
	}
	return r.Appearance.ShouldAppear(ctx)
}

// Built-in role ids
const (
	NoRoleID    RoleID = Namespace + ":no_role"
	CivilianID  RoleID = Namespace + ":civilian"
	VigilanteID RoleID = Namespace + ":vigilante"
	KillerID    RoleID = Namespace + ":killer"
	LooseEndID  RoleID = Namespace + ":loose_end"
	ConductorID RoleID = Namespace + ":conductor"
	CoronerID   RoleID = Namespace + ":coroner"
	PoisonerID  RoleID = Namespace + ":poisoner"
	JesterID    RoleID = Namespace + ":jester"
)

// builtinRoles returns the built-in catalog in registration order
func builtinRoles() []*Role {
	return []*Role{
		{ID: NoRoleID, Color: 0xFFFFFF, Mood: MoodNone, MaxSprintTicks: UnlimitedSprint, CanSeeTime: true, Generic: true},
		{ID: CivilianID, Color: 0x36E51B, Innocent: true, Mood: MoodReal, MaxSprintTicks: 200, Generic: true},
		{ID: VigilanteID, Color: 0x1B8AE5, Innocent: true, Mood: MoodReal, MaxSprintTicks: 200, Generic: true},
		{ID: KillerID, Color: 0xC13838, CanUseKiller: true, Mood: MoodFake, MaxSprintTicks: UnlimitedSprint, CanSeeTime: true, Generic: true},
		{ID: LooseEndID, Color: 0x9F0000, CanUseKiller: true, Mood: MoodNone, MaxSprintTicks: UnlimitedSprint, CanSeeTime: true, Generic: true},
		{ID: ConductorID, Color: 0xE5C31B, Innocent: true, Mood: MoodReal, MaxSprintTicks: 400},
		{ID: CoronerID, Color: 0x7A1BE5, Innocent: true, Mood: MoodReal, MaxSprintTicks: 200},
		{ID: PoisonerID, Color: 0x5E9E2B, CanUseKiller: true, Mood: MoodFake, MaxSprintTicks: UnlimitedSprint, CanSeeTime: true, Appearance: MinParticipants(8)},
		{ID: JesterID, Color: 0xF28AD6, Mood: MoodFake, MaxSprintTicks: 300, Appearance: MinParticipants(6)},
	}
}
