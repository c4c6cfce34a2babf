package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
)

// fakeWorld is an in-memory World for machine tests
type fakeWorld struct {
	order     []ParticipantID
	names     map[ParticipantID]string
	locations map[ParticipantID]Location
	observers map[ParticipantID]bool
	vote      bool

	resetCalls  int
	resetStatus ResetStatus
	// resetResults are returned by ResetStatus after each BeginReset, in order
	resetResults []ResetStatus
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		names:     make(map[ParticipantID]string),
		locations: make(map[ParticipantID]Location),
		observers: make(map[ParticipantID]bool),
	}
}

// addReady connects n participants standing in the ready area
func (w *fakeWorld) addReady(n int) []Participant {
	var out []Participant
	for i := 0; i < n; i++ {
		p := Participant{ID: uuid.New(), Name: fmt.Sprintf("p%02d", len(w.order))}
		w.order = append(w.order, p.ID)
		w.names[p.ID] = p.Name
		w.locations[p.ID] = LocationReady
		out = append(out, p)
	}
	return out
}

func (w *fakeWorld) disconnect(id ParticipantID) {
	for i, other := range w.order {
		if other == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	delete(w.names, id)
	delete(w.locations, id)
}

func (w *fakeWorld) Participants() []Participant {
	out := make([]Participant, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, Participant{ID: id, Name: w.names[id]})
	}
	return out
}

func (w *fakeWorld) Connected(id ParticipantID) bool {
	_, ok := w.names[id]
	return ok
}

func (w *fakeWorld) ReadyParticipants() []Participant {
	var out []Participant
	for _, p := range w.Participants() {
		if w.locations[p.ID] == LocationReady {
			out = append(out, p)
		}
	}
	return out
}

func (w *fakeWorld) VoteInProgress() bool { return w.vote }

func (w *fakeWorld) Location(id ParticipantID) Location { return w.locations[id] }

func (w *fakeWorld) Move(id ParticipantID, to Location) {
	if w.Connected(id) {
		w.locations[id] = to
	}
}

func (w *fakeWorld) SetObserver(id ParticipantID, observer bool) { w.observers[id] = observer }

func (w *fakeWorld) BeginReset() {
	w.resetCalls++
	w.resetStatus = ResetDone
	if len(w.resetResults) > 0 {
		w.resetStatus, w.resetResults = w.resetResults[0], w.resetResults[1:]
	}
}

func (w *fakeWorld) ResetStatus() ResetStatus { return w.resetStatus }

// recordingObserver collects notifications
type recordingObserver struct {
	grants []RoleGrant
	kills  []ParticipantID
}

func (o *recordingObserver) RoleGranted(g RoleGrant) { o.grants = append(o.grants, g) }

func (o *recordingObserver) ParticipantKilled(_ string, victim, _ ParticipantID) {
	o.kills = append(o.kills, victim)
}

var testSettings = Settings{FadeTime: 40, FadePause: 20, TickRate: 20}

// newTestMachine builds a machine over a fake world with the default ratios
func newTestMachine(t *testing.T) (*Machine, *fakeWorld, *recordingObserver) {
	t.Helper()
	w := newFakeWorld()
	obs := &recordingObserver{}
	ctx := &Context{
		Session:   NewSession("test", "murder", Ratios{Killer: 6, Vigilante: 6, Neutral: 8}, 42),
		Registry:  NewRegistry(),
		Modes:     DefaultModes(),
		World:     w,
		Observers: []Observer{obs},
		Settings:  testSettings,
	}
	return NewMachine(ctx), w, obs
}

// startRound requests a start and steps until the round is active
func startRound(t *testing.T, m *Machine, req StartRequest) {
	t.Helper()
	if err := m.RequestStart(req); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Advance(m.Context().Settings.FadeCeiling())
	if m.Session().Status != StatusActive {
		t.Fatalf("status = %s after fade, want ACTIVE", m.Session().Status)
	}
}

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func ids(ps []Participant) []ParticipantID {
	out := make([]ParticipantID, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
