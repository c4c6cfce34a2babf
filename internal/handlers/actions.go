package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"trainmystery/internal/game"
	"trainmystery/internal/loop"
)

type startRequest struct {
	Mode     string `json:"mode"`
	Seconds  int    `json:"seconds"`
	MinReady int    `json:"minReady"`
}

// StartRound requests a round start
func (h *Handler) StartRound(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var view game.View
	err := h.do(r, func(env *loop.Environment) error {
		if err := env.Machine.RequestStart(game.StartRequest{
			Mode:             req.Mode,
			RoundSeconds:     req.Seconds,
			MinReadyOverride: req.MinReady,
		}); err != nil {
			return err
		}
		view = env.Machine.View()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, redact(view, ""))
}

// StopRound ends the active round without a winner
func (h *Handler) StopRound(w http.ResponseWriter, r *http.Request) {
	var view game.View
	err := h.do(r, func(env *loop.Environment) error {
		if err := env.Machine.StopRound(); err != nil {
			return err
		}
		view = env.Machine.View()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, redact(view, ""))
}

type forceRoleRequest struct {
	Role        string `json:"role"`
	Participant string `json:"participant"`
}

// ForceRole queues a participant for a guaranteed role next round
func (h *Handler) ForceRole(w http.ResponseWriter, r *http.Request) {
	var req forceRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := parseParticipant(req.Participant)
	if err != nil {
		writeError(w, err)
		return
	}
	var role *game.Role
	var name string
	err = h.do(r, func(env *loop.Environment) error {
		var err error
		role, err = env.Machine.ForceRole(req.Role, id)
		name = env.Session().Name(id)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("🎭 %s will be %s next round in %s", name, role.ID, chi.URLParam(r, "env"))
	writeJSON(w, http.StatusOK, map[string]any{
		"role":        role.ID,
		"participant": id.String(),
	})
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetRoleEnabled toggles a special role for an environment
func (h *Handler) SetRoleEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, fmt.Errorf("%w: enabled is required", game.ErrInvalidValue))
		return
	}
	roleName := chi.URLParam(r, "role")
	var roles []roleResponse
	err := h.do(r, func(env *loop.Environment) error {
		if err := env.Machine.SetRoleEnabled(roleName, *req.Enabled); err != nil {
			return err
		}
		roles = rolesResponse(env.Machine.Registry())
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// EnvironmentRoles lists roles with their enabled state in an environment
func (h *Handler) EnvironmentRoles(w http.ResponseWriter, r *http.Request) {
	var roles []roleResponse
	err := h.do(r, func(env *loop.Environment) error {
		roles = rolesResponse(env.Machine.Registry())
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

type countRequest struct {
	Count *int `json:"count"`
	Ratio *int `json:"ratio"`
}

// SetKillerCount fixes the number of killers; zero returns to the ratio
func (h *Handler) SetKillerCount(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Count == nil {
		writeError(w, fmt.Errorf("%w: count is required", game.ErrInvalidValue))
		return
	}
	h.respondSettings(w, r, func(env *loop.Environment) error {
		return env.Machine.SetKillerCount(*req.Count)
	})
}

// SetKillerRatio sets how many participants each killer slot needs
func (h *Handler) SetKillerRatio(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Ratio == nil {
		writeError(w, fmt.Errorf("%w: ratio is required", game.ErrInvalidValue))
		return
	}
	h.respondSettings(w, r, func(env *loop.Environment) error {
		return env.Machine.SetKillerRatio(*req.Ratio)
	})
}

type autoStartRequest struct {
	Enabled *bool  `json:"enabled"`
	Seconds *int   `json:"seconds"`
	Mode    string `json:"mode"`
}

// ConfigureAutoStart changes the lobby countdown
func (h *Handler) ConfigureAutoStart(w http.ResponseWriter, r *http.Request) {
	var req autoStartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondSettings(w, r, func(env *loop.Environment) error {
		a := env.AutoStart
		mode := a.Mode
		if req.Mode != "" {
			if _, ok := env.Machine.Modes().Lookup(req.Mode); !ok {
				return fmt.Errorf("%w: %s", game.ErrUnknownMode, req.Mode)
			}
			mode = req.Mode
		}
		ticks := a.StartTicks
		if req.Seconds != nil {
			if *req.Seconds < 0 {
				return fmt.Errorf("%w: seconds must not be negative", game.ErrInvalidValue)
			}
			ticks = *req.Seconds * env.Machine.Context().Settings.TickRate
		}
		a.Configure(ticks, mode)
		if req.Enabled != nil {
			a.Enabled = *req.Enabled
		}
		return nil
	})
}

type settingsRequest struct {
	BoundToPlayArea     *bool  `json:"boundToPlayArea"`
	ShootInnocentPolicy string `json:"shootInnocentPolicy"`
}

// UpdateSettings changes session gameplay settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondSettings(w, r, func(env *loop.Environment) error {
		if req.ShootInnocentPolicy != "" {
			if err := env.Machine.SetShootInnocentPolicy(game.ShootInnocentPolicy(req.ShootInnocentPolicy)); err != nil {
				return err
			}
		}
		if req.BoundToPlayArea != nil {
			env.Machine.SetBoundToPlayArea(*req.BoundToPlayArea)
		}
		return nil
	})
}

type settingsResponse struct {
	KillerCount         int                      `json:"killerCount"`
	KillerRatio         int                      `json:"killerRatio"`
	VigilanteRatio      int                      `json:"vigilanteRatio"`
	NeutralRatio        int                      `json:"neutralRatio"`
	BoundToPlayArea     bool                     `json:"boundToPlayArea"`
	ShootInnocentPolicy game.ShootInnocentPolicy `json:"shootInnocentPolicy"`
	AutoStart           autoStartResponse        `json:"autoStart"`
}

type autoStartResponse struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode"`
	Seconds int    `json:"seconds"`
}

func settingsOf(env *loop.Environment) settingsResponse {
	s := env.Session()
	tickRate := max(1, env.Machine.Context().Settings.TickRate)
	return settingsResponse{
		KillerCount:         s.KillerCount,
		KillerRatio:         s.Ratios.Killer,
		VigilanteRatio:      s.Ratios.Vigilante,
		NeutralRatio:        s.Ratios.Neutral,
		BoundToPlayArea:     s.BoundToPlayArea,
		ShootInnocentPolicy: s.ShootInnocentPolicy,
		AutoStart: autoStartResponse{
			Enabled: env.AutoStart.Enabled,
			Mode:    env.AutoStart.Mode,
			Seconds: env.AutoStart.StartTicks / tickRate,
		},
	}
}

// Settings returns the environment's current settings
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	h.respondSettings(w, r, func(*loop.Environment) error { return nil })
}

// respondSettings applies fn and answers with the resulting settings
func (h *Handler) respondSettings(w http.ResponseWriter, r *http.Request, fn func(*loop.Environment) error) {
	var resp settingsResponse
	err := h.do(r, func(env *loop.Environment) error {
		if err := fn(env); err != nil {
			return err
		}
		resp = settingsOf(env)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type voteRequest struct {
	Active bool `json:"active"`
}

// SetVote marks a map vote as running or finished
func (h *Handler) SetVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.do(r, func(env *loop.Environment) error {
		env.Arena.SetVote(req.Active)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// Snapshot returns the latest published view of an environment, redacted
// for the participant named by the participant query parameter
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	view, ok := h.runner.Latest(chi.URLParam(r, "env"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown environment"})
		return
	}
	writeJSON(w, http.StatusOK, redact(view, r.URL.Query().Get("participant")))
}
