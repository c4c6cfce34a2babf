package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"trainmystery/internal/game"
	"trainmystery/internal/loop"
)

func parseParticipant(s string) (game.ParticipantID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: participant id %q", game.ErrInvalidValue, s)
	}
	return id, nil
}

type joinRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type participantResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Location game.Location `json:"location"`
}

// Join connects a participant to an environment. Omitting the id creates a new participant.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := uuid.New()
	if req.ID != "" {
		var err error
		if id, err = parseParticipant(req.ID); err != nil {
			writeError(w, err)
			return
		}
	}
	var resp participantResponse
	err := h.do(r, func(env *loop.Environment) error {
		if err := env.Arena.Join(game.Participant{ID: id, Name: req.Name}); err != nil {
			return err
		}
		resp = participantResponse{
			ID:       id.String(),
			Location: env.Arena.Location(id),
		}
		for _, p := range env.Arena.Participants() {
			if p.ID == id {
				resp.Name = p.Name
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("👤 %s joined %s", resp.Name, chi.URLParam(r, "env"))
	writeJSON(w, http.StatusCreated, resp)
}

// Leave disconnects a participant. Their role and records are kept.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	id, ok := participantParam(w, r)
	if !ok {
		return
	}
	err := h.do(r, func(env *loop.Environment) error {
		env.Arena.Leave(id)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	To game.Location `json:"to"`
}

// Move walks a participant to another location
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := participantParam(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var loc game.Location
	err := h.do(r, func(env *loop.Environment) error {
		if err := env.Arena.Walk(id, req.To); err != nil {
			return err
		}
		loc = env.Arena.Location(id)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id.String(), "location": loc})
}

type killRequest struct {
	Killer string `json:"killer"`
}

// Kill marks a living role holder dead
func (h *Handler) Kill(w http.ResponseWriter, r *http.Request) {
	id, ok := participantParam(w, r)
	if !ok {
		return
	}
	var req killRequest
	if !decodeBody(w, r, &req) {
		return
	}
	killer := uuid.Nil
	if req.Killer != "" {
		var err error
		if killer, err = parseParticipant(req.Killer); err != nil {
			writeError(w, err)
			return
		}
	}
	err := h.do(r, func(env *loop.Environment) error {
		if !env.Machine.Kill(id, killer) {
			return game.ErrNotAlive
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type optOutRequest struct {
	OptOut bool `json:"optOut"`
}

// OptOut excludes a participant from being dealt into rounds
func (h *Handler) OptOut(w http.ResponseWriter, r *http.Request) {
	id, ok := participantParam(w, r)
	if !ok {
		return
	}
	var req optOutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.do(r, func(env *loop.Environment) error {
		return env.Arena.SetOptOut(id, req.OptOut)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id.String(), "optOut": req.OptOut})
}

type resultResponse struct {
	Win     game.WinStatus `json:"win"`
	DidWin  bool           `json:"didWin"`
	Role    game.RoleID    `json:"role,omitempty"`
	Status  game.EndStatus `json:"status,omitempty"`
	Balance int            `json:"balance"`
}

// Result reports how a participant fared in the last recorded round
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	id, ok := participantParam(w, r)
	if !ok {
		return
	}
	var resp resultResponse
	err := h.do(r, func(env *loop.Environment) error {
		s := env.Session()
		resp.Win = s.Win
		resp.DidWin = game.DidWin(s, env.Machine.Registry(), id)
		if rec, ok := s.Record(id); ok {
			resp.Role = rec.Role
			resp.Status = rec.Status
		}
		resp.Balance = h.runner.Ledger().Balance(s.ID, id)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
