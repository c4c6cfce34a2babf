package game

import "fmt"

// ForceRole queues a participant for a guaranteed role next round
func (m *Machine) ForceRole(name string, id ParticipantID) (*Role, error) {
	roleID, err := ParseRoleID(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, name)
	}
	role, ok := m.ctx.Registry.Lookup(roleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, roleID)
	}
	if role.ID == NoRoleID {
		return nil, ErrSentinelRole
	}
	m.ctx.Session.Forced.Add(role.ID, id)
	return role, nil
}

// SetRoleEnabled toggles whether a special role may be dealt
func (m *Machine) SetRoleEnabled(name string, enabled bool) error {
	roleID, err := ParseRoleID(name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownRole, name)
	}
	return m.ctx.Registry.SetEnabled(roleID, enabled)
}

// SetKillerCount fixes the killer count; zero returns to the ratio
func (m *Machine) SetKillerCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: killer count must not be negative", ErrInvalidValue)
	}
	m.ctx.Session.KillerCount = n
	return nil
}

// SetKillerRatio sets how many participants each killer slot needs
func (m *Machine) SetKillerRatio(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: killer ratio must be at least 1", ErrInvalidValue)
	}
	m.ctx.Session.Ratios.Killer = n
	return nil
}

// SetShootInnocentPolicy changes the punishment for shooting a civilian
func (m *Machine) SetShootInnocentPolicy(p ShootInnocentPolicy) error {
	switch p {
	case PolicyDropGun, PolicyPreventGunPickup, PolicyKillShooter:
		m.ctx.Session.ShootInnocentPolicy = p
		return nil
	default:
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidValue, p)
	}
}

// SetBoundToPlayArea toggles confinement of participants to the play area
func (m *Machine) SetBoundToPlayArea(bound bool) {
	m.ctx.Session.BoundToPlayArea = bound
}
