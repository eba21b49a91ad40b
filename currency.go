package main

import (
	"log"
	"time"
)

// Achievement re-evaluation off currency changes is throttled to at most one
// pass per player per interval. The trigger is a latency heuristic, not a
// correctness mechanism: unlock is idempotent and every handler that touches
// relevant state re-checks explicitly.
const achievementRefreshInterval = 30 * time.Second

// addCurrency is the only sanctioned writer of Save.Currency. Delta may be
// fractional; negative deltas exist only for internal spend paths and the
// result clamps at zero. Caller holds p.mu.
func (s *EconomyService) addCurrency(p *PlayerState, delta float64) {
	p.Save.Currency += delta
	if p.Save.Currency < 0 {
		p.Save.Currency = 0
	}

	p.push(CurrencyUpdateEvent, CurrencyUpdate{Balance: p.Save.Currency})

	if delta > 0 && p.refresh.Allow() {
		s.evaluateAchievements(p)
	}
}

// spendCurrency debits a validated purchase. Callers must have checked
// affordability already; this logs if the clamp ever fires, since that
// indicates a handler skipped its precondition.
func (s *EconomyService) spendCurrency(p *PlayerState, amount int64) {
	if float64(amount) > p.Save.Currency {
		log.Printf("[currency] spend of %d exceeds balance %.2f for %s", amount, p.Save.Currency, p.Username)
	}
	s.addCurrency(p, -float64(amount))
}
