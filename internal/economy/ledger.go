// Package economy awards starting balances when roles are dealt.
package economy

import (
	"log"
	"sync"

	"trainmystery/internal/config"
	"trainmystery/internal/game"
)

// Ledger holds per-session balances. It implements game.Observer.
type Ledger struct {
	base  int
	bonus int

	mu       sync.RWMutex
	balances map[string]map[game.ParticipantID]int
}

// NewLedger creates a ledger using the configured starting balance formula
func NewLedger(cfg config.GameConfig) *Ledger {
	return &Ledger{
		base:     cfg.StartingBalance,
		bonus:    cfg.BalanceBonus,
		balances: make(map[string]map[game.ParticipantID]int),
	}
}

// StartingBalance is base plus a bonus for every participant beyond
// slots × ratio. Roles outside the killer faction and the vigilante get nothing.
func (l *Ledger) StartingBalance(g game.RoleGrant) int {
	var slots, ratio int
	switch {
	case g.Role.Faction() == game.FactionKiller:
		slots, ratio = g.Targets.Killers, g.Ratios.Killer
	case g.Role.ID == game.VigilanteID:
		slots, ratio = g.Targets.Vigilantes, g.Ratios.Vigilante
	default:
		return 0
	}
	extra := 0
	if ratio > 0 {
		extra = max(0, g.Participants-slots*ratio)
	}
	return l.base + l.bonus*extra
}

// RoleGranted resets the participant's balance for the new round
func (l *Ledger) RoleGranted(g game.RoleGrant) {
	amount := l.StartingBalance(g)

	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := l.balances[g.Session]
	if accounts == nil {
		accounts = make(map[game.ParticipantID]int)
		l.balances[g.Session] = accounts
	}
	accounts[g.Participant] = amount
	if amount > 0 {
		log.Printf("economy: %s starts with %d as %s", g.Participant, amount, g.Role.ID)
	}
}

// ParticipantKilled is a no-op; balances survive until the next deal
func (l *Ledger) ParticipantKilled(string, game.ParticipantID, game.ParticipantID) {}

// Balance returns a participant's balance in a session
func (l *Ledger) Balance(session string, id game.ParticipantID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[session][id]
}
