package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"trainmystery/internal/config"
	"trainmystery/internal/game"
	"trainmystery/internal/loop"
	"trainmystery/internal/world"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	runner  *loop.Runner
	catalog *game.Registry
	config  *config.ServerConfig

	sseConnections atomic.Int64
}

// New creates a new handler. catalog lists the roles known to the server.
func New(runner *loop.Runner, catalog *game.Registry, cfg *config.ServerConfig) *Handler {
	return &Handler{
		runner:  runner,
		catalog: catalog,
		config:  cfg,
	}
}

// Runner returns the handler's simulation loop (for testing)
func (h *Handler) Runner() *loop.Runner {
	return h.runner
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Failed to write response: %v", err)
	}
}

// writeError maps command errors to status codes. Rejections are expected
// and not logged.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, loop.ErrUnknownEnvironment), errors.Is(err, world.ErrUnknownParticipant):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case game.IsRejection(err), world.IsRejection(err):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, loop.ErrStopped):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		log.Printf("❌ Command failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeBody reads an optional JSON body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
	return false
}

// participantParam parses the {id} route parameter
func participantParam(w http.ResponseWriter, r *http.Request) (game.ParticipantID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid participant id"})
		return uuid.Nil, false
	}
	return id, true
}

// do runs fn on the simulation loop for the {env} route parameter
func (h *Handler) do(r *http.Request, fn func(*loop.Environment) error) error {
	return h.runner.Do(r.Context(), chi.URLParam(r, "env"), fn)
}

type roleResponse struct {
	ID           game.RoleID  `json:"id"`
	Faction      game.Faction `json:"faction"`
	Color        string       `json:"color,omitempty"`
	Special      bool         `json:"special"`
	CanUseKiller bool         `json:"canUseKiller"`
	Enabled      bool         `json:"enabled"`
}

func rolesResponse(registry *game.Registry) []roleResponse {
	var out []roleResponse
	for _, role := range registry.Roles() {
		if role.ID == game.NoRoleID {
			continue
		}
		out = append(out, roleResponse{
			ID:           role.ID,
			Faction:      role.Faction(),
			Color:        fmt.Sprintf("#%06X", role.Color),
			Special:      role.Special(),
			CanUseKiller: role.CanUseKiller,
			Enabled:      registry.Enabled(role.ID),
		})
	}
	return out
}

// ListRoles returns the server's role catalog
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rolesResponse(h.catalog))
}

// ListModes returns the playable mode ids
func (h *Handler) ListModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.Modes().IDs())
}

// ListEnvironments returns the configured environment ids
func (h *Handler) ListEnvironments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.Environments())
}
