package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"trainmystery/internal/config"
)

func TestNewAutoStart(t *testing.T) {
	a := NewAutoStart(config.AutoStartConfig{Enabled: true, Seconds: 30, Mode: "loose_ends"}, 20)
	assert.True(t, a.Enabled)
	assert.Equal(t, "loose_ends", a.Mode)
	assert.Equal(t, 600, a.StartTicks)
	assert.Equal(t, 600, a.Remaining)

	a.Configure(-5, "murder")
	assert.Zero(t, a.StartTicks)
	assert.Zero(t, a.Remaining)
}

func TestAutoStartCountsDown(t *testing.T) {
	m, w, _ := newTestMachine(t)
	w.addReady(4)
	a := &AutoStart{Enabled: true}
	a.Configure(10, "murder")

	assert.False(t, a.Tick(m, 4))
	assert.Equal(t, 6, a.Remaining)
	assert.False(t, a.Tick(m, 4))
	assert.Equal(t, 2, a.Remaining)

	assert.True(t, a.Tick(m, 4))
	assert.Equal(t, StatusStarting, m.Session().Status)
	assert.Equal(t, 10, a.Remaining)

	// a running session is left alone
	assert.False(t, a.Tick(m, 100))
	assert.Equal(t, 10, a.Remaining)
}

func TestAutoStartWaitsForParticipants(t *testing.T) {
	m, w, _ := newTestMachine(t)
	w.addReady(3)
	a := &AutoStart{Enabled: true}
	a.Configure(10, "murder")

	for i := 0; i < 20; i++ {
		assert.False(t, a.Tick(m, 1))
	}
	assert.Equal(t, 10, a.Remaining)

	w.addReady(1)
	a.Tick(m, 7)
	assert.Equal(t, 3, a.Remaining)

	// dropping under the minimum restarts the countdown
	w.disconnect(w.order[0])
	a.Tick(m, 1)
	assert.Equal(t, 10, a.Remaining)
	assert.Equal(t, StatusInactive, m.Session().Status)
}

func TestAutoStartDisabled(t *testing.T) {
	m, w, _ := newTestMachine(t)
	w.addReady(4)
	a := &AutoStart{}
	a.Configure(0, "murder")
	assert.False(t, a.Tick(m, 1))
	assert.Equal(t, StatusInactive, m.Session().Status)
}

func TestAutoStartUsesItsMode(t *testing.T) {
	m, w, _ := newTestMachine(t)
	w.addReady(2)
	a := &AutoStart{Enabled: true}
	a.Configure(1, "loose_ends")

	assert.True(t, a.Tick(m, 1))
	assert.Equal(t, "loose_ends", m.Session().Mode)
}

func TestAutoStartBlockedByVote(t *testing.T) {
	m, w, _ := newTestMachine(t)
	w.addReady(4)
	w.vote = true
	a := &AutoStart{Enabled: true}
	a.Configure(1, "murder")

	assert.False(t, a.Tick(m, 1))
	assert.Equal(t, StatusInactive, m.Session().Status)
	assert.Equal(t, 1, a.Remaining)
}
