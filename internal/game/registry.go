package game

import (
	"fmt"
	"strconv"
	"strings"

	"trainmystery/internal/config"
)

// Registry is the catalog of roles known to the server.
// It keeps registration order so allocation is reproducible for a given seed.
type Registry struct {
	roles    []*Role
	byID     map[RoleID]*Role
	disabled map[RoleID]bool
}

// NewRegistry creates a registry holding the built-in roles
func NewRegistry() *Registry {
	r := &Registry{
		byID:     make(map[RoleID]*Role),
		disabled: make(map[RoleID]bool),
	}
	for _, role := range builtinRoles() {
		// built-ins never collide
		_ = r.Register(role)
	}
	return r
}

// NewRegistryFromConfig creates a registry with the built-in roles plus the
// configured custom roles, and applies the configured disabled list.
func NewRegistryFromConfig(cfg config.RolesConfig) (*Registry, error) {
	r := NewRegistry()
	for _, def := range cfg.Custom {
		role, err := roleFromDefinition(def)
		if err != nil {
			return nil, err
		}
		if err := r.Register(role); err != nil {
			return nil, err
		}
	}
	for _, name := range cfg.Disabled {
		id, err := ParseRoleID(name)
		if err != nil {
			return nil, fmt.Errorf("disabled roles: %w", err)
		}
		if err := r.SetEnabled(id, false); err != nil {
			return nil, fmt.Errorf("disabled roles: %w", err)
		}
	}
	return r, nil
}

func roleFromDefinition(def config.RoleDefinition) (*Role, error) {
	id, err := ParseRoleID(def.ID)
	if err != nil {
		return nil, fmt.Errorf("custom role: %w", err)
	}
	mood := Mood(def.Mood)
	switch mood {
	case MoodReal, MoodFake, MoodNone:
	case "":
		mood = MoodReal
	default:
		return nil, fmt.Errorf("custom role %s: unknown mood %q", id, def.Mood)
	}
	color := 0xFFFFFF
	if def.Color != "" {
		n, err := strconv.ParseUint(strings.TrimPrefix(def.Color, "#"), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("custom role %s: invalid color %q", id, def.Color)
		}
		color = int(n)
	}
	role := &Role{
		ID:             id,
		Color:          color,
		Innocent:       def.Innocent,
		CanUseKiller:   def.CanUseKiller,
		Mood:           mood,
		MaxSprintTicks: def.MaxSprintTicks,
		CanSeeTime:     def.CanSeeTime,
	}
	if def.MinParticipants > 0 {
		role.Appearance = MinParticipants(def.MinParticipants)
	}
	return role, nil
}

// Register adds a role to the catalog
func (r *Registry) Register(role *Role) error {
	if role == nil {
		return fmt.Errorf("role is nil")
	}
	if _, exists := r.byID[role.ID]; exists {
		return fmt.Errorf("role %s already registered", role.ID)
	}
	r.roles = append(r.roles, role)
	r.byID[role.ID] = role
	return nil
}

// Lookup returns the role with the given id
func (r *Registry) Lookup(id RoleID) (*Role, bool) {
	role, ok := r.byID[id]
	return role, ok
}

// Role returns a role that is known to exist, such as a built-in
func (r *Registry) Role(id RoleID) *Role {
	role, ok := r.byID[id]
	if !ok {
		panic(fmt.Sprintf("role %s is not registered", id))
	}
	return role
}

// NoRole returns the sentinel role
func (r *Registry) NoRole() *Role {
	return r.Role(NoRoleID)
}

// Roles returns all roles in registration order
func (r *Registry) Roles() []*Role {
	out := make([]*Role, len(r.roles))
	copy(out, r.roles)
	return out
}

// Enabled reports whether a role may be dealt
func (r *Registry) Enabled(id RoleID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	return !r.disabled[id]
}

// SetEnabled enables or disables a special role. Generic roles cannot be disabled.
func (r *Registry) SetEnabled(id RoleID, enabled bool) error {
	role, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRole, id)
	}
	if !role.Special() {
		return fmt.Errorf("%w: %s", ErrGenericRole, id)
	}
	if enabled {
		delete(r.disabled, id)
	} else {
		r.disabled[id] = true
	}
	return nil
}

// Specials returns the enabled special roles of a faction that may appear in ctx
func (r *Registry) Specials(faction Faction, ctx AppearanceContext) []*Role {
	var out []*Role
	for _, role := range r.roles {
		if !role.Special() || role.Faction() != faction {
			continue
		}
		if r.disabled[role.ID] || !role.CanAppear(ctx) {
			continue
		}
		out = append(out, role)
	}
	return out
}
