package main

import "log"

// GrantDecision is relayed back to the host's purchase-receipt protocol.
type GrantDecision string

const (
	// GrantGranted acknowledges the receipt; it will not be replayed.
	GrantGranted GrantDecision = "granted"
	// GrantNotProcessed asks the processor to retry later (player not in
	// session, or unknown product).
	GrantNotProcessed GrantDecision = "not_processed"
)

// GrantEntitlement applies a confirmed purchase to the player's record. The
// grant is trusted: the payment processor only calls this after payment has
// cleared. Re-granting a held entitlement is a no-op acknowledged as
// granted, so replayed confirmations are harmless.
func (s *EconomyService) GrantEntitlement(userID int64, productID string) GrantDecision {
	p, found := s.Player(userID)
	if !found {
		log.Printf("[monetization] grant of %s for user %d deferred: not in session", productID, userID)
		return GrantNotProcessed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := s.now()
	switch productID {
	case PassVIP:
		p.Save.HasVIP = true
	case PassDoubleCash:
		p.Save.HasDoubleCash = true
	case PassAutoCollect:
		p.Save.HasAutoCollect = true
	case ProductBoost2x, ProductBoost5x:
		p.Save.ActiveBoosts[productID] = now.Unix() + boostDurationSeconds
	case ProductRebirthSkip:
		s.addCurrency(p, float64(RebirthCost(p.Save.RebirthCount)))
	default:
		log.Printf("[monetization] unknown product %q for user %d", productID, userID)
		return GrantNotProcessed
	}

	p.push(PlayerDataUpdateEvent, playerDataView(p.Save))
	s.evaluateAchievements(p)
	s.SaveAsync(p)

	log.Printf("[monetization] granted %s to %s", productID, p.Username)
	return GrantGranted
}
