package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	datastar "github.com/starfederation/datastar-go/datastar"
	"github.com/tidwall/gjson"
	"trainmystery/internal/game"
)

// heartbeatInterval keeps idle browser connections open
const heartbeatInterval = 30 * time.Second

// StreamEnvironment streams session views for an environment. A viewer that
// sends a participant signal only sees its own role while a round is running.
func (h *Handler) StreamEnvironment(w http.ResponseWriter, r *http.Request) {
	env := chi.URLParam(r, "env")

	view, ok := h.runner.Latest(env)
	if !ok {
		log.Printf("📡 SSE requested for unknown environment: %s", env)
		http.Error(w, "Environment not found", http.StatusNotFound)
		return
	}

	if limit := int64(h.config.Server.MaxSSEConnections); limit > 0 {
		if h.sseConnections.Add(1) > limit {
			h.sseConnections.Add(-1)
			http.Error(w, "Too many connections", http.StatusServiceUnavailable)
			return
		}
		defer h.sseConnections.Add(-1)
	}

	viewer := viewerFromSignals(r.URL.Query().Get("datastar"))

	sse := datastar.NewSSE(w, r)

	bus := h.runner.Broadcaster()
	events := bus.Subscribe(env)
	defer bus.Unsubscribe(env, events)
	log.Printf("📡 SSE connection established for %s", env)

	if err := sse.MarshalAndPatchSignals(map[string]any{"session": redact(view, viewer)}); err != nil {
		log.Printf("❌ Failed to send initial view: %v", err)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Printf("📡 SSE connection closed for %s", env)
			return
		case <-heartbeat.C:
			if err := sse.Send("keepalive", []string{fmt.Sprintf(`{"time":"%s"}`, time.Now().Format(time.RFC3339))}); err != nil {
				log.Printf("📡 Keepalive failed for %s: %v - closing connection", env, err)
				return
			}
		case v, open := <-events:
			if !open {
				return
			}
			if err := sse.MarshalAndPatchSignals(map[string]any{"session": redact(v, viewer)}); err != nil {
				log.Printf("📡 View update failed for %s: %v - closing connection", env, err)
				return
			}
		}
	}
}

// viewerFromSignals reads the optional participant signal
func viewerFromSignals(raw string) string {
	if raw == "" || !gjson.Valid(raw) {
		return ""
	}
	return gjson.Get(raw, "participant").String()
}

// redact hides roles while a round is starting, running or stopping. A
// viewer sees their own role; a dead or observing viewer sees everyone's.
// Anonymous viewers see no roles until the session is inactive.
func redact(v game.View, viewer string) game.View {
	if v.Status == game.StatusInactive || seesAllRoles(v, viewer) {
		return v
	}
	out := v
	out.Participants = make([]game.ParticipantView, len(v.Participants))
	for i, p := range v.Participants {
		if viewer == "" || p.ID != viewer {
			p.Role = ""
			p.Faction = game.FactionNone
			p.CanSeeTime = false
		}
		out.Participants[i] = p
	}
	return out
}

// seesAllRoles reports whether viewer is out of the round: dead, or
// connected without a dealt role
func seesAllRoles(v game.View, viewer string) bool {
	if viewer == "" {
		return false
	}
	for _, p := range v.Participants {
		if p.ID != viewer {
			continue
		}
		return p.Dead || (p.Connected && (p.Role == "" || p.Role == game.NoRoleID))
	}
	return false
}
