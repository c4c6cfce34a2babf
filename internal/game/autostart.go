package game

import "trainmystery/internal/config"

// AutoStart counts down while enough participants are ready and then
// requests a round start. It never progresses while under-subscribed.
type AutoStart struct {
	Enabled    bool
	Mode       string
	StartTicks int
	Remaining  int
}

// NewAutoStart applies the configured countdown and mode
func NewAutoStart(cfg config.AutoStartConfig, tickRate int) *AutoStart {
	a := &AutoStart{Enabled: cfg.Enabled}
	a.Configure(cfg.Seconds*tickRate, cfg.Mode)
	return a
}

// Configure sets the countdown length in ticks and the mode to start
func (a *AutoStart) Configure(ticks int, mode string) {
	a.StartTicks = max(0, ticks)
	a.Mode = mode
	a.Remaining = a.StartTicks
}

// Tick advances the countdown by elapsed steps. It reports whether a round start was accepted.
func (a *AutoStart) Tick(m *Machine, elapsed int) bool {
	if !a.Enabled || m.Session().Status != StatusInactive {
		return false
	}
	mode, ok := m.Modes().Lookup(a.Mode)
	if !ok {
		mode = m.Modes().Default()
	}
	if len(m.World().ReadyParticipants()) < mode.MinimumParticipants() {
		a.Remaining = a.StartTicks
		return false
	}
	a.Remaining -= elapsed
	if a.Remaining > 0 {
		return false
	}
	a.Remaining = a.StartTicks
	err := m.RequestStart(StartRequest{Mode: mode.ID()})
	return err == nil
}
