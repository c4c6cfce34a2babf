package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trainmystery/internal/config"
	"trainmystery/internal/game"
	"trainmystery/internal/loop"
	"trainmystery/internal/store"
)

type testServer struct {
	router http.Handler
	runner *loop.Runner
	cfg    *config.ServerConfig
}

// newTestServer runs a single-environment loop with a short fade
func newTestServer(t *testing.T, configure ...func(*config.ServerConfig)) *testServer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Game.FadeTime = 2
	cfg.Game.FadePause = 1
	cfg.Store.AutosaveInterval = 0
	for _, fn := range configure {
		fn(cfg)
	}

	runner, err := loop.New(context.Background(), cfg, store.NewMemoryStore())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h := New(runner, game.NewRegistry(), cfg)
	return &testServer{
		router: SetupRouter(h, cfg, &RouterOptions{DisableRateLimiting: true, DisableRequestLogger: true}),
		runner: runner,
		cfg:    cfg,
	}
}

func (s *testServer) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// join connects a participant and walks them to the ready area
func (s *testServer) join(t *testing.T, name string) string {
	t.Helper()
	w := s.request(t, http.MethodPost, "/env/main/participants", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[participantResponse](t, w).ID
	w = s.request(t, http.MethodPost, "/env/main/participants/"+id+"/move", map[string]string{"to": "ready"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id
}

func (s *testServer) waitForStatus(t *testing.T, status game.Status) game.View {
	t.Helper()
	var v game.View
	require.Eventually(t, func() bool {
		v, _ = s.runner.Latest("main")
		return v.Status == status
	}, 3*time.Second, 10*time.Millisecond, "status never became %s", status)
	return v
}

func TestListEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.request(t, http.MethodGet, "/roles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	roles := decode[[]roleResponse](t, w)
	byID := make(map[game.RoleID]roleResponse)
	for _, r := range roles {
		byID[r.ID] = r
	}
	assert.NotContains(t, byID, game.NoRoleID)
	assert.Equal(t, "#C13838", byID[game.KillerID].Color)
	assert.Equal(t, game.FactionNeutral, byID[game.JesterID].Faction)
	assert.True(t, byID[game.JesterID].Special)
	assert.False(t, byID[game.CivilianID].Special)

	w = s.request(t, http.MethodGet, "/modes", nil)
	assert.Equal(t, []string{"discovery", "loose_ends", "murder"}, decode[[]string](t, w))

	w = s.request(t, http.MethodGet, "/env", nil)
	assert.Equal(t, []string{"main"}, decode[[]string](t, w))

	w = s.request(t, http.MethodGet, "/env/main/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, game.StatusInactive, decode[game.View](t, w).Status)

	w = s.request(t, http.MethodGet, "/env/attic/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParticipants(t *testing.T) {
	s := newTestServer(t)

	w := s.request(t, http.MethodPost, "/env/main/participants", map[string]string{"name": " Alice "})
	require.Equal(t, http.StatusCreated, w.Code)
	alice := decode[participantResponse](t, w)
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, game.LocationLobby, alice.Location)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"duplicate name", http.MethodPost, "/env/main/participants", map[string]string{"name": "alice"}, http.StatusConflict},
		{"missing name", http.MethodPost, "/env/main/participants", map[string]string{}, http.StatusConflict},
		{"bad participant id", http.MethodPost, "/env/main/participants", map[string]string{"id": "x", "name": "Bob"}, http.StatusConflict},
		{"unknown environment", http.MethodPost, "/env/attic/participants", map[string]string{"name": "Bob"}, http.StatusNotFound},
		{"unknown location", http.MethodPost, "/env/main/participants/" + alice.ID + "/move", map[string]string{"to": "roof"}, http.StatusConflict},
		{"malformed route id", http.MethodPost, "/env/main/participants/nope/move", map[string]string{"to": "ready"}, http.StatusBadRequest},
		{"opt out", http.MethodPost, "/env/main/participants/" + alice.ID + "/opt-out", map[string]bool{"optOut": true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.request(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w = s.request(t, http.MethodDelete, "/env/main/participants/"+alice.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.request(t, http.MethodPost, "/env/main/participants/"+alice.ID+"/move", map[string]string{"to": "ready"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/env/main/participants", bytes.NewBufferString("name=Alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/env/main/participants", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.request(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRoundLifecycle(t *testing.T) {
	s := newTestServer(t)
	var ids []string
	for _, name := range []string{"Ann", "Ben", "Cat"} {
		ids = append(ids, s.join(t, name))
	}

	w := s.request(t, http.MethodPost, "/env/main/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "three is not enough for murder")

	ids = append(ids, s.join(t, "Dan"))
	w = s.request(t, http.MethodPost, "/env/main/start", map[string]any{"seconds": 120})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, game.StatusStarting, decode[game.View](t, w).Status)

	w = s.request(t, http.MethodPost, "/env/main/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	v := s.waitForStatus(t, game.StatusActive)
	require.Len(t, v.Participants, 4)
	var civilian, killer string
	for _, p := range v.Participants {
		switch p.Faction {
		case game.FactionCivilian:
			civilian = p.ID
		case game.FactionKiller:
			killer = p.ID
		}
		assert.Equal(t, game.LocationPlayArea, p.Location)
	}
	require.NotEmpty(t, civilian)
	require.NotEmpty(t, killer)

	w = s.request(t, http.MethodPost, "/env/main/participants/"+civilian+"/kill", map[string]string{"killer": killer})
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	w = s.request(t, http.MethodPost, "/env/main/participants/"+civilian+"/kill", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.request(t, http.MethodPost, "/env/main/stop", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	s.waitForStatus(t, game.StatusInactive)

	w = s.request(t, http.MethodGet, "/env/main/participants/"+civilian+"/result", nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[resultResponse](t, w)
	assert.Equal(t, game.WinNone, result.Win)
	assert.False(t, result.DidWin)
	assert.Equal(t, game.EndDead, result.Status)
	assert.NotEmpty(t, result.Role)

	w = s.request(t, http.MethodGet, "/env/main/participants/"+killer+"/result", nil)
	result = decode[resultResponse](t, w)
	assert.Equal(t, game.EndAlive, result.Status)
	assert.Equal(t, s.cfg.Game.StartingBalance, result.Balance)

	w = s.request(t, http.MethodPost, "/env/main/stop", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSnapshotHidesRoles(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"Ann", "Ben", "Cat", "Dan"} {
		s.join(t, name)
	}
	w := s.request(t, http.MethodPost, "/env/main/start", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	for _, p := range decode[game.View](t, w).Participants {
		assert.Empty(t, p.Role)
	}
	full := s.waitForStatus(t, game.StatusActive)

	var civilian, killer string
	var killerRole game.RoleID
	for _, p := range full.Participants {
		switch p.Faction {
		case game.FactionCivilian:
			civilian = p.ID
		case game.FactionKiller:
			killer, killerRole = p.ID, p.Role
		}
	}
	require.NotEmpty(t, civilian)
	require.NotEmpty(t, killer)

	rolesSeen := func(viewer string) map[string]game.RoleID {
		path := "/env/main"
		if viewer != "" {
			path += "?participant=" + viewer
		}
		w := s.request(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		seen := make(map[string]game.RoleID)
		for _, p := range decode[game.View](t, w).Participants {
			if p.Role != "" {
				seen[p.ID] = p.Role
			}
		}
		return seen
	}

	assert.Empty(t, rolesSeen(""))
	assert.Equal(t, map[string]game.RoleID{killer: killerRole}, rolesSeen(killer))
	own := rolesSeen(civilian)
	assert.Len(t, own, 1)
	assert.Contains(t, own, civilian)

	w = s.request(t, http.MethodPost, "/env/main/participants/"+civilian+"/kill", map[string]string{"killer": killer})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	require.Eventually(t, func() bool {
		return len(rolesSeen(civilian)) == 4
	}, 3*time.Second, 10*time.Millisecond, "dead participant should see every role")
	assert.Empty(t, rolesSeen(""))
}

func TestStartBlockedByVote(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"Ann", "Ben"} {
		s.join(t, name)
	}
	w := s.request(t, http.MethodPost, "/env/main/vote", map[string]bool{"active": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.request(t, http.MethodPost, "/env/main/start", map[string]any{"mode": "loose_ends"})
	assert.Equal(t, http.StatusConflict, w.Code)

	s.request(t, http.MethodPost, "/env/main/vote", map[string]bool{"active": false})
	w = s.request(t, http.MethodPost, "/env/main/start", map[string]any{"mode": "loose_ends"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = s.request(t, http.MethodPost, "/env/main/start", map[string]any{"mode": "tag"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestForceRole(t *testing.T) {
	s := newTestServer(t)
	ids := []string{s.join(t, "Ann"), s.join(t, "Ben"), s.join(t, "Cat"), s.join(t, "Dan")}

	w := s.request(t, http.MethodPost, "/env/main/forced-roles", map[string]string{"role": "jester", "participant": ids[2]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, body := range []map[string]string{
		{"role": "ghost", "participant": ids[0]},
		{"role": "no_role", "participant": ids[0]},
		{"role": "killer", "participant": "nope"},
	} {
		w = s.request(t, http.MethodPost, "/env/main/forced-roles", body)
		assert.Equal(t, http.StatusConflict, w.Code, body)
	}

	v := decode[game.View](t, s.request(t, http.MethodGet, "/env/main/", nil))
	assert.Equal(t, 1, v.Forced)

	s.request(t, http.MethodPost, "/env/main/start", nil)
	v = s.waitForStatus(t, game.StatusActive)
	for _, p := range v.Participants {
		if p.ID == ids[2] {
			assert.Equal(t, game.JesterID, p.Role)
		}
	}
	assert.Zero(t, v.Forced)
}

func TestRoleToggles(t *testing.T) {
	s := newTestServer(t)

	w := s.request(t, http.MethodPost, "/env/main/roles/jester/enabled", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, r := range decode[[]roleResponse](t, w) {
		if r.ID == game.JesterID {
			assert.False(t, r.Enabled)
		}
	}

	w = s.request(t, http.MethodGet, "/env/main/roles", nil)
	for _, r := range decode[[]roleResponse](t, w) {
		if r.ID == game.JesterID {
			assert.False(t, r.Enabled)
		}
	}

	// the server catalog is not affected
	w = s.request(t, http.MethodGet, "/roles", nil)
	for _, r := range decode[[]roleResponse](t, w) {
		if r.ID == game.JesterID {
			assert.True(t, r.Enabled)
		}
	}

	tests := []struct {
		path string
		body any
	}{
		{"/env/main/roles/civilian/enabled", map[string]bool{"enabled": false}},
		{"/env/main/roles/ghost/enabled", map[string]bool{"enabled": false}},
		{"/env/main/roles/jester/enabled", map[string]string{}},
	}
	for _, tt := range tests {
		w = s.request(t, http.MethodPost, tt.path, tt.body)
		assert.Equal(t, http.StatusConflict, w.Code, tt.path)
	}
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)

	w := s.request(t, http.MethodGet, "/env/main/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	settings := decode[settingsResponse](t, w)
	assert.Equal(t, 6, settings.KillerRatio)
	assert.True(t, settings.BoundToPlayArea)
	assert.Equal(t, game.PolicyDropGun, settings.ShootInnocentPolicy)
	assert.Equal(t, 30, settings.AutoStart.Seconds)

	w = s.request(t, http.MethodPost, "/env/main/killers/count", map[string]int{"count": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[settingsResponse](t, w).KillerCount)

	w = s.request(t, http.MethodPost, "/env/main/killers/ratio", map[string]int{"ratio": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decode[settingsResponse](t, w).KillerRatio)

	w = s.request(t, http.MethodPost, "/env/main/autostart", map[string]any{"enabled": true, "seconds": 10, "mode": "loose_ends"})
	require.Equal(t, http.StatusOK, w.Code)
	auto := decode[settingsResponse](t, w).AutoStart
	assert.Equal(t, autoStartResponse{Enabled: true, Mode: "loose_ends", Seconds: 10}, auto)

	w = s.request(t, http.MethodPost, "/env/main/settings", map[string]any{"boundToPlayArea": false, "shootInnocentPolicy": "kill_shooter"})
	require.Equal(t, http.StatusOK, w.Code)
	settings = decode[settingsResponse](t, w)
	assert.False(t, settings.BoundToPlayArea)
	assert.Equal(t, game.PolicyKillShooter, settings.ShootInnocentPolicy)

	rejected := []struct {
		path string
		body any
	}{
		{"/env/main/killers/count", map[string]int{"count": -1}},
		{"/env/main/killers/count", map[string]int{}},
		{"/env/main/killers/ratio", map[string]int{"ratio": 0}},
		{"/env/main/autostart", map[string]any{"seconds": -3}},
		{"/env/main/autostart", map[string]any{"mode": "tag"}},
		{"/env/main/settings", map[string]any{"shootInnocentPolicy": "fine"}},
	}
	for _, tt := range rejected {
		w = s.request(t, http.MethodPost, tt.path, tt.body)
		assert.Equal(t, http.StatusConflict, w.Code, "%s %v", tt.path, tt.body)
	}
}

func TestAutoStartOverHTTP(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"Ann", "Ben"} {
		s.join(t, name)
	}
	w := s.request(t, http.MethodPost, "/env/main/autostart", map[string]any{"enabled": true, "seconds": 0, "mode": "loose_ends"})
	require.Equal(t, http.StatusOK, w.Code)

	v := s.waitForStatus(t, game.StatusActive)
	assert.Equal(t, "loose_ends", v.Mode)
	for _, p := range v.Participants {
		assert.Equal(t, game.LooseEndID, p.Role)
	}
}
