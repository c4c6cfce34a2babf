package game

import (
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"trainmystery/internal/config"
)

// Settings are the timing constants of a session
type Settings struct {
	FadeTime  int
	FadePause int
	TickRate  int

	ResetInitialInterval time.Duration
	ResetMaxInterval     time.Duration
}

// SettingsFromConfig copies the game section of the configuration
func SettingsFromConfig(cfg config.GameConfig) Settings {
	return Settings{
		FadeTime:             cfg.FadeTime,
		FadePause:            cfg.FadePause,
		TickRate:             cfg.TickRate,
		ResetInitialInterval: cfg.ResetBackoff,
		ResetMaxInterval:     cfg.ResetBackoffMax,
	}
}

// FadeCeiling is the fade value at which a transition completes
func (s Settings) FadeCeiling() int {
	return s.FadeTime + s.FadePause
}

// Context is everything one play environment's session logic works with.
// It is built once per environment and passed explicitly to the allocator,
// the recorder and the modes.
type Context struct {
	Session   *Session
	Registry  *Registry
	Modes     *Modes
	World     World
	Observers []Observer
	Settings  Settings
}

// StartRequest asks for a round to start
type StartRequest struct {
	Mode string
	// RoundSeconds of zero uses the mode's default
	RoundSeconds int
	// MinReadyOverride replaces the mode's minimum participant count when positive
	MinReadyOverride int
}

// Machine is the session state machine: INACTIVE -> STARTING -> ACTIVE -> STOPPING -> INACTIVE
type Machine struct {
	ctx   *Context
	reset *resetSchedule
}

// NewMachine wraps a context. An unknown session mode falls back to the default mode.
func NewMachine(ctx *Context) *Machine {
	s := ctx.Session
	if _, ok := ctx.Modes.Lookup(s.Mode); !ok {
		fallback := ctx.Modes.Default().ID()
		if s.Mode != "" {
			log.Printf("session %s: unknown mode %q, using %s", s.ID, s.Mode, fallback)
		}
		s.Mode = fallback
	}
	return &Machine{
		ctx:   ctx,
		reset: newResetSchedule(ctx.Settings),
	}
}

func (m *Machine) Context() *Context   { return m.ctx }
func (m *Machine) Session() *Session   { return m.ctx.Session }
func (m *Machine) Registry() *Registry { return m.ctx.Registry }
func (m *Machine) Modes() *Modes       { return m.ctx.Modes }
func (m *Machine) World() World        { return m.ctx.World }

// Mode returns the session's selected mode
func (m *Machine) Mode() Mode {
	mode, ok := m.ctx.Modes.Lookup(m.ctx.Session.Mode)
	if !ok {
		return m.ctx.Modes.Default()
	}
	return mode
}

// RequestStart moves an inactive session to STARTING
func (m *Machine) RequestStart(req StartRequest) error {
	s := m.ctx.Session
	if s.Status != StatusInactive {
		return ErrNotInactive
	}
	mode := m.Mode()
	if req.Mode != "" {
		var ok bool
		mode, ok = m.ctx.Modes.Lookup(req.Mode)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownMode, req.Mode)
		}
	}
	if m.ctx.World.VoteInProgress() {
		return ErrVoteInProgress
	}
	need := mode.MinimumParticipants()
	if req.MinReadyOverride > 0 {
		need = req.MinReadyOverride
	}
	if have := len(m.ctx.World.ReadyParticipants()); have < need {
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughParticipants, need, have)
	}
	if req.RoundSeconds < 0 {
		return fmt.Errorf("%w: round seconds must not be negative", ErrInvalidValue)
	}

	s.Mode = mode.ID()
	s.RoundSeconds = req.RoundSeconds
	if s.RoundSeconds == 0 {
		s.RoundSeconds = mode.DefaultRoundSeconds()
	}
	s.MinReadyOverride = req.MinReadyOverride
	s.Status = StatusStarting
	log.Printf("session %s: starting %s round", s.ID, s.Mode)
	return nil
}

// RequestStop moves an active session to STOPPING
func (m *Machine) RequestStop() error {
	s := m.ctx.Session
	if s.Status != StatusActive {
		return ErrNotActive
	}
	s.Status = StatusStopping
	log.Printf("session %s: stopping round %d", s.ID, s.Round)
	return nil
}

// StopRound ends the active round without a winner
func (m *Machine) StopRound() error {
	if m.ctx.Session.Status != StatusActive {
		return ErrNotActive
	}
	RecordWin(m.ctx, WinNone)
	return m.RequestStop()
}

// Win records a faction win and stops the round. It is ignored unless the round is active.
func (m *Machine) Win(status WinStatus) {
	if m.ctx.Session.Status != StatusActive {
		return
	}
	RecordWin(m.ctx, status)
	log.Printf("session %s: round %d won by %s", m.ctx.Session.ID, m.ctx.Session.Round, status)
	_ = m.RequestStop()
}

// WinNeutral records a win for one designated participant and stops the round
func (m *Machine) WinNeutral(status WinStatus, winner ParticipantID) {
	if m.ctx.Session.Status != StatusActive {
		return
	}
	RecordNeutralWin(m.ctx, status, winner)
	log.Printf("session %s: round %d won by %s (%s)", m.ctx.Session.ID, m.ctx.Session.Round, status, m.ctx.Session.Name(winner))
	_ = m.RequestStop()
}

// Kill marks a living role holder dead. killer may be uuid.Nil for environmental deaths.
func (m *Machine) Kill(victim, killer ParticipantID) bool {
	s := m.ctx.Session
	if !s.IsRunning() || !s.IsAlive(victim) {
		return false
	}
	s.Dead[victim] = true
	m.ctx.World.SetObserver(victim, true)
	for _, o := range m.ctx.Observers {
		o.ParticipantKilled(s.ID, victim, killer)
	}
	return true
}

// Advance runs n steps
func (m *Machine) Advance(n int) {
	for i := 0; i < n; i++ {
		m.Step()
	}
}

// Step runs one authoritative simulation step
func (m *Machine) Step() {
	m.StepCommon()
	m.maintain()
	if m.ctx.Session.IsRunning() {
		m.Mode().Tick(m)
	}
}

// StepCommon runs the part of a step shared with presentation-only copies:
// fade, transitions and the mode's common tick.
func (m *Machine) StepCommon() {
	s := m.ctx.Session
	ceiling := m.ctx.Settings.FadeCeiling()
	switch s.Status {
	case StatusStarting, StatusStopping:
		s.Fade = min(s.Fade+1, ceiling)
		if s.Fade >= ceiling {
			if s.Status == StatusStarting {
				m.initializeRound()
			} else {
				m.finalizeRound()
			}
		}
	case StatusActive, StatusInactive:
		s.Fade = max(s.Fade-1, 0)
	}
	if s.IsRunning() {
		m.Mode().TickCommon(m)
	}
}

func (m *Machine) initializeRound() {
	s := m.ctx.Session
	w := m.ctx.World
	mode := m.Mode()

	s.Round++
	s.clearRound()
	ready := w.ReadyParticipants()
	for _, p := range ready {
		s.Names[p.ID] = p.Name
	}

	targets := mode.Targets(s, len(ready))
	rng := rand.New(rand.NewPCG(s.Seed, uint64(s.Round)))
	granted := AssignRoles(m.ctx, ready, targets, rng)
	s.pruneNames()
	for _, g := range granted {
		grant := RoleGrant{
			Session:      s.ID,
			Participant:  g.Participant,
			Role:         g.Role,
			Participants: len(ready),
			Targets:      targets,
			Ratios:       s.Ratios,
		}
		for _, o := range m.ctx.Observers {
			o.RoleGranted(grant)
		}
	}

	for _, p := range ready {
		w.SetObserver(p.ID, false)
		w.Move(p.ID, LocationPlayArea)
	}
	for _, p := range w.Participants() {
		if !s.HasAnyRole(p.ID) {
			w.SetObserver(p.ID, true)
		}
	}

	s.RoundTicks = s.RoundSeconds * m.ctx.Settings.TickRate
	mode.InitializeRound(m)
	s.Status = StatusActive
	log.Printf("session %s: round %d active with %d participants (%d killers, %d vigilantes, %d neutrals targeted)",
		s.ID, s.Round, len(ready), targets.Killers, targets.Vigilantes, targets.Neutrals)
}

func (m *Machine) finalizeRound() {
	s := m.ctx.Session
	w := m.ctx.World
	m.Mode().FinalizeRound(m)
	for _, p := range w.Participants() {
		w.SetObserver(p.ID, false)
		w.Move(p.ID, LocationLobby)
	}
	m.reset.schedule()
	s.Status = StatusInactive
	log.Printf("session %s: round %d finished (%s)", s.ID, s.Round, s.Win)
}

// maintain keeps the environment consistent with the session. It only runs on authoritative steps.
func (m *Machine) maintain() {
	s := m.ctx.Session
	w := m.ctx.World

	if s.Status == StatusInactive {
		m.reset.step(s.ID, w)
	}

	if s.Status == StatusActive {
		for _, p := range w.Participants() {
			if s.IsAlive(p.ID) && w.Location(p.ID) == LocationOutside {
				m.Kill(p.ID, uuid.Nil)
			}
			if !s.HasAnyRole(p.ID) {
				w.SetObserver(p.ID, true)
			}
		}
	}

	if s.BoundToPlayArea {
		m.confine()
	}
}

// confine keeps living role holders inside the play area during a round
// and everyone else out of it.
func (m *Machine) confine() {
	s := m.ctx.Session
	w := m.ctx.World
	for _, p := range w.Participants() {
		loc := w.Location(p.ID)
		playing := s.IsRunning() && s.IsAlive(p.ID)
		switch {
		case playing && (loc == LocationLobby || loc == LocationReady):
			w.Move(p.ID, LocationPlayArea)
		case !playing && !s.IsDead(p.ID) && loc == LocationPlayArea:
			w.Move(p.ID, LocationLobby)
		case !s.IsRunning() && loc == LocationOutside:
			w.Move(p.ID, LocationLobby)
		}
	}
}

// resetSchedule restores the play area between rounds, backing off after failures
type resetSchedule struct {
	pending  bool
	inFlight bool
	wait     int
	tick     time.Duration
	backoff  *backoff.ExponentialBackOff
}

func newResetSchedule(settings Settings) *resetSchedule {
	b := backoff.NewExponentialBackOff()
	if settings.ResetInitialInterval > 0 {
		b.InitialInterval = settings.ResetInitialInterval
	}
	if settings.ResetMaxInterval > 0 {
		b.MaxInterval = settings.ResetMaxInterval
	}
	b.RandomizationFactor = 0
	tick := time.Second / 20
	if settings.TickRate > 0 {
		tick = time.Second / time.Duration(settings.TickRate)
	}
	return &resetSchedule{tick: tick, backoff: b}
}

func (r *resetSchedule) schedule() {
	r.pending = true
	r.inFlight = false
	r.wait = 0
	r.backoff.Reset()
}

func (r *resetSchedule) step(session string, w World) {
	if !r.pending {
		return
	}
	if r.inFlight {
		switch w.ResetStatus() {
		case ResetPending:
			return
		case ResetDone:
			r.pending = false
			r.inFlight = false
			r.backoff.Reset()
			log.Printf("session %s: play area reset", session)
		default:
			r.inFlight = false
			delay := r.backoff.NextBackOff()
			if delay < 0 {
				delay = r.backoff.MaxInterval
			}
			r.wait = max(1, int(delay/r.tick))
			log.Printf("session %s: play area reset failed, retrying in %s", session, delay)
		}
		return
	}
	if r.wait > 0 {
		r.wait--
		return
	}
	w.BeginReset()
	r.inFlight = true
}

// ResetPending reports whether a play-area reset is scheduled or running
func (m *Machine) ResetPending() bool {
	return m.reset.pending
}
