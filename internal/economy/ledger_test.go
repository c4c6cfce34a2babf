package economy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"trainmystery/internal/config"
	"trainmystery/internal/game"
)

func TestStartingBalance(t *testing.T) {
	reg := game.NewRegistry()
	l := NewLedger(config.GameConfig{StartingBalance: 100, BalanceBonus: 10})
	ratios := game.Ratios{Killer: 6, Vigilante: 6, Neutral: 8}

	tests := []struct {
		name         string
		role         game.RoleID
		participants int
		targets      game.Targets
		ratios       game.Ratios
		want         int
	}{
		{"killer at exact ratio", game.KillerID, 12, game.Targets{Killers: 2}, ratios, 100},
		{"killer with spare participants", game.KillerID, 15, game.Targets{Killers: 2}, ratios, 130},
		{"special killer", game.PoisonerID, 9, game.Targets{Killers: 1}, ratios, 130},
		{"forced count above ratio", game.KillerID, 4, game.Targets{Killers: 3}, ratios, 100},
		{"vigilante", game.VigilanteID, 8, game.Targets{Vigilantes: 1}, ratios, 120},
		{"vigilantes without ratio", game.VigilanteID, 8, game.Targets{Vigilantes: 1}, game.Ratios{Killer: 6}, 100},
		{"civilian", game.CivilianID, 8, game.Targets{Killers: 1}, ratios, 0},
		{"neutral", game.JesterID, 8, game.Targets{Neutrals: 1}, ratios, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.StartingBalance(game.RoleGrant{
				Role:         reg.Role(tt.role),
				Participants: tt.participants,
				Targets:      tt.targets,
				Ratios:       tt.ratios,
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLedgerTracksSessions(t *testing.T) {
	reg := game.NewRegistry()
	l := NewLedger(config.GameConfig{StartingBalance: 50})
	id := uuid.New()

	l.RoleGranted(game.RoleGrant{
		Session:      "main",
		Participant:  id,
		Role:         reg.Role(game.KillerID),
		Participants: 6,
		Targets:      game.Targets{Killers: 1},
		Ratios:       game.Ratios{Killer: 6},
	})
	l.ParticipantKilled("main", id, uuid.Nil)

	assert.Equal(t, 50, l.Balance("main", id))
	assert.Zero(t, l.Balance("other", id))
	assert.Zero(t, l.Balance("main", uuid.New()))

	// a new deal replaces the old balance
	l.RoleGranted(game.RoleGrant{Session: "main", Participant: id, Role: reg.Role(game.CivilianID)})
	assert.Zero(t, l.Balance("main", id))
}
