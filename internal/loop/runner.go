// Package loop runs every play environment on a single fixed-rate goroutine.
// Commands from other goroutines are queued and applied between steps.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"reflect"
	"sort"
	"time"

	"trainmystery/internal/config"
	"trainmystery/internal/economy"
	"trainmystery/internal/game"
	"trainmystery/internal/store"
	"trainmystery/internal/world"
)

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrStopped            = errors.New("simulation loop is not running")
)

// Environment is one play area with its session and countdown
type Environment struct {
	ID        string
	Machine   *game.Machine
	Arena     *world.Arena
	AutoStart *game.AutoStart
}

// Session is a shortcut for the environment's session
func (e *Environment) Session() *game.Session {
	return e.Machine.Session()
}

type command struct {
	env    string
	fn     func(*Environment) error
	result chan error
}

// Runner owns all environments. Only its goroutine touches session and
// world state.
type Runner struct {
	envs     map[string]*Environment
	order    []string
	repo     store.Repository
	ledger   *economy.Ledger
	bus      *Broadcaster
	modes    *game.Modes
	tickRate int
	autosave time.Duration

	commands chan command
	done     chan struct{}
	last     map[string]game.View
}

// New builds every configured environment, restoring saved sessions from repo
func New(ctx context.Context, cfg *config.ServerConfig, repo store.Repository) (*Runner, error) {
	modes := game.DefaultModes()
	if cfg.Game.DefaultMode != "" {
		if err := modes.SetDefault(cfg.Game.DefaultMode); err != nil {
			return nil, fmt.Errorf("default mode: %w", err)
		}
	}

	r := &Runner{
		envs:     make(map[string]*Environment),
		repo:     repo,
		ledger:   economy.NewLedger(cfg.Game),
		bus:      NewBroadcaster(),
		modes:    modes,
		tickRate: cfg.Game.TickRate,
		autosave: cfg.Store.AutosaveInterval,
		commands: make(chan command, 64),
		done:     make(chan struct{}),
		last:     make(map[string]game.View),
	}
	if r.tickRate < 1 {
		r.tickRate = 20
	}

	settings := game.SettingsFromConfig(cfg.Game)
	ratios := game.Ratios{
		Killer:    cfg.Game.KillerRatio,
		Vigilante: cfg.Game.VigilanteRatio,
		Neutral:   cfg.Game.NeutralRatio,
	}

	for _, id := range cfg.Environments {
		registry, err := game.NewRegistryFromConfig(cfg.Roles)
		if err != nil {
			return nil, err
		}
		session, err := r.restore(ctx, id, registry, game.Defaults{
			ID:          id,
			Mode:        modes.Default().ID(),
			Ratios:      ratios,
			FadeCeiling: settings.FadeCeiling(),
			Seed:        rand.Uint64(),
		})
		if err != nil {
			return nil, err
		}

		arena := world.NewArena(id, cfg.Server.MaxParticipantsPerEnv, cfg.Game.ResetTicks)
		machine := game.NewMachine(&game.Context{
			Session:   session,
			Registry:  registry,
			Modes:     modes,
			World:     arena,
			Observers: []game.Observer{r.ledger},
			Settings:  settings,
		})
		r.envs[id] = &Environment{
			ID:        id,
			Machine:   machine,
			Arena:     arena,
			AutoStart: game.NewAutoStart(cfg.AutoStart, r.tickRate),
		}
		r.order = append(r.order, id)
		r.publish(r.envs[id])
	}
	sort.Strings(r.order)
	return r, nil
}

func (r *Runner) restore(ctx context.Context, id string, registry *game.Registry, d game.Defaults) (*game.Session, error) {
	data, err := r.repo.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return game.NewSession(d.ID, d.Mode, d.Ratios, d.Seed), nil
	}
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", id, err)
	}
	session, warnings := game.Decode(data, registry, r.modes, d)
	for _, w := range warnings {
		log.Printf("store: %s: %s", id, w)
	}
	log.Printf("store: restored %s (round %d, %s)", id, session.Round, session.Status)
	return session, nil
}

// Environments returns the environment ids in sorted order
func (r *Runner) Environments() []string {
	return append([]string(nil), r.order...)
}

// Modes returns the playable modes
func (r *Runner) Modes() *game.Modes {
	return r.modes
}

// Ledger returns the starting balance ledger
func (r *Runner) Ledger() *economy.Ledger {
	return r.ledger
}

// Broadcaster returns the view fan-out
func (r *Runner) Broadcaster() *Broadcaster {
	return r.bus
}

// Latest returns the last published view of an environment
func (r *Runner) Latest(env string) (game.View, bool) {
	return r.bus.Latest(env)
}

// Do queues fn to run against env between steps and waits for its result
func (r *Runner) Do(ctx context.Context, env string, fn func(*Environment) error) error {
	if _, ok := r.envs[env]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEnvironment, env)
	}
	cmd := command{env: env, fn: fn, result: make(chan error, 1)}
	select {
	case r.commands <- cmd:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.result:
		return err
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run steps every environment at the configured tick rate until ctx is
// cancelled, then saves all sessions.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	ticker := time.NewTicker(time.Second / time.Duration(r.tickRate))
	defer ticker.Stop()

	var autosave <-chan time.Time
	if r.autosave > 0 {
		t := time.NewTicker(r.autosave)
		defer t.Stop()
		autosave = t.C
	}

	log.Printf("loop: running %d environments at %d ticks/s", len(r.order), r.tickRate)
	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return r.SaveAll(saveCtx)
		case cmd := <-r.commands:
			r.execute(cmd)
		case <-ticker.C:
			r.Step()
		case <-autosave:
			if err := r.SaveAll(ctx); err != nil {
				log.Printf("store: autosave failed: %v", err)
			}
		}
	}
}

func (r *Runner) execute(cmd command) {
	env := r.envs[cmd.env]
	err := cmd.fn(env)
	if err != nil && !game.IsRejection(err) && !world.IsRejection(err) {
		log.Printf("loop: %s: command failed: %v", cmd.env, err)
	}
	r.publish(env)
	cmd.result <- err
}

// Step advances every environment by one tick. Only the loop goroutine,
// or a test that never started Run, may call it.
func (r *Runner) Step() {
	for _, id := range r.order {
		env := r.envs[id]
		env.Arena.Advance()
		env.Machine.Step()
		env.AutoStart.Tick(env.Machine, 1)
		r.publish(env)
	}
}

func (r *Runner) publish(env *Environment) {
	v := env.Machine.View()
	if last, ok := r.last[env.ID]; ok && reflect.DeepEqual(last, v) {
		return
	}
	r.last[env.ID] = v
	r.bus.Publish(v)
}

// SaveAll persists every session
func (r *Runner) SaveAll(ctx context.Context) error {
	var errs []error
	for _, id := range r.order {
		data, err := game.Encode(r.envs[id].Session())
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", id, err))
			continue
		}
		if err := r.repo.Save(ctx, id, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
