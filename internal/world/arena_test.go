package world

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trainmystery/internal/game"
)

func join(t *testing.T, a *Arena, name string) game.ParticipantID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, a.Join(game.Participant{ID: id, Name: name}))
	return id
}

func TestArenaJoin(t *testing.T) {
	a := NewArena("main", 2, 0)

	alice := join(t, a, "  Alice ")
	assert.Equal(t, game.LocationLobby, a.Location(alice))
	assert.Equal(t, "Alice", a.Participants()[0].Name)

	tests := []struct {
		name    string
		p       game.Participant
		wantErr error
	}{
		{"empty name", game.Participant{ID: uuid.New(), Name: "   "}, ErrNameRequired},
		{"duplicate name ignores case", game.Participant{ID: uuid.New(), Name: "ALICE"}, ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, a.Join(tt.p), tt.wantErr)
		})
	}

	// rejoining with the same id only renames
	require.NoError(t, a.Join(game.Participant{ID: alice, Name: "alice"}))
	assert.Len(t, a.Participants(), 1)
	assert.Equal(t, "alice", a.Participants()[0].Name)

	join(t, a, "Bob")
	err := a.Join(game.Participant{ID: uuid.New(), Name: "Carol"})
	assert.ErrorIs(t, err, ErrArenaFull)
	assert.True(t, IsRejection(err))
}

func TestArenaLeave(t *testing.T) {
	a := NewArena("main", 0, 0)
	alice := join(t, a, "Alice")
	bob := join(t, a, "Bob")
	carol := join(t, a, "Carol")

	a.Leave(bob)
	a.Leave(uuid.New())

	assert.False(t, a.Connected(bob))
	assert.Equal(t, game.Location(""), a.Location(bob))
	var ids []game.ParticipantID
	for _, p := range a.Participants() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []game.ParticipantID{alice, carol}, ids)

	// a freed name can be taken again
	join(t, a, "bob")
}

func TestArenaReadyParticipants(t *testing.T) {
	a := NewArena("main", 0, 0)
	alice := join(t, a, "Alice")
	bob := join(t, a, "Bob")
	join(t, a, "Carol")

	require.NoError(t, a.Walk(alice, game.LocationReady))
	require.NoError(t, a.Walk(bob, game.LocationReady))
	assert.Len(t, a.ReadyParticipants(), 2)

	require.NoError(t, a.SetOptOut(bob, true))
	ready := a.ReadyParticipants()
	require.Len(t, ready, 1)
	assert.Equal(t, alice, ready[0].ID)

	assert.ErrorIs(t, a.SetOptOut(uuid.New(), true), ErrUnknownParticipant)
}

func TestArenaWalk(t *testing.T) {
	a := NewArena("main", 0, 0)
	alice := join(t, a, "Alice")

	assert.NoError(t, a.Walk(alice, game.LocationOutside))
	assert.Equal(t, game.LocationOutside, a.Location(alice))
	assert.ErrorIs(t, a.Walk(alice, "roof"), ErrUnknownLocation)
	assert.ErrorIs(t, a.Walk(uuid.New(), game.LocationReady), ErrUnknownParticipant)
	assert.False(t, IsRejection(nil))
}

func TestArenaObserverAndVote(t *testing.T) {
	a := NewArena("main", 0, 0)
	alice := join(t, a, "Alice")

	a.SetObserver(alice, true)
	assert.True(t, a.Observer(alice))
	a.SetObserver(alice, false)
	assert.False(t, a.Observer(alice))
	assert.False(t, a.Observer(uuid.New()))

	assert.False(t, a.VoteInProgress())
	a.SetVote(true)
	assert.True(t, a.VoteInProgress())
}

func TestArenaReset(t *testing.T) {
	a := NewArena("main", 0, 3)
	assert.Equal(t, game.ResetIdle, a.ResetStatus())

	a.Advance()
	assert.Equal(t, game.ResetIdle, a.ResetStatus())

	a.FailResets(1)
	a.BeginReset()
	for i := 0; i < 3; i++ {
		a.Advance()
		require.Equal(t, game.ResetPending, a.ResetStatus())
	}
	a.Advance()
	assert.Equal(t, game.ResetFailed, a.ResetStatus())

	a.BeginReset()
	for i := 0; i < 4; i++ {
		a.Advance()
	}
	assert.Equal(t, game.ResetDone, a.ResetStatus())
}

func TestArenaRunsASession(t *testing.T) {
	a := NewArena("main", 0, 2)
	var ids []game.ParticipantID
	for _, name := range []string{"Ann", "Ben", "Cat", "Dan"} {
		id := join(t, a, name)
		require.NoError(t, a.Walk(id, game.LocationReady))
		ids = append(ids, id)
	}

	m := game.NewMachine(&game.Context{
		Session:  game.NewSession("main", "murder", game.Ratios{Killer: 6, Vigilante: 6}, 3),
		Registry: game.NewRegistry(),
		Modes:    game.DefaultModes(),
		World:    a,
		Settings: game.Settings{FadeTime: 4, FadePause: 2, TickRate: 20},
	})
	require.NoError(t, m.RequestStart(game.StartRequest{}))
	m.Advance(6)
	require.Equal(t, game.StatusActive, m.Session().Status)
	for _, id := range ids {
		assert.Equal(t, game.LocationPlayArea, a.Location(id))
	}

	require.NoError(t, m.StopRound())
	m.Advance(6)
	assert.Equal(t, game.StatusInactive, m.Session().Status)
	for _, id := range ids {
		assert.Equal(t, game.LocationLobby, a.Location(id))
	}

	for i := 0; i < 5 && m.ResetPending(); i++ {
		a.Advance()
		m.Step()
	}
	assert.False(t, m.ResetPending())
	assert.Equal(t, game.ResetDone, a.ResetStatus())
}
