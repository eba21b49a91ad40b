package main

import "time"

// The income pipeline. Each multiplier is an independent pure function of
// the player's current state; composition order is fixed and changing it
// changes numeric outcomes (the additive upgrade bonus is converted to a
// multiplier before composing multiplicatively with everything else):
//
//	income = base
//	       × rebirth × upgrade × zone × boost × idleStreak
//	       × gamepass × premium × eventIncome
//	       + eventBonus

// UpgradeIncomeMultiplier is 1 plus the sum of level × perLevelBonus over
// all owned upgrades. Unknown upgrade ids contribute nothing.
func UpgradeIncomeMultiplier(catalog *Catalog, levels map[string]int) float64 {
	bonus := 0.0
	for id, level := range levels {
		if u := catalog.Upgrade(id); u != nil {
			bonus += float64(level) * u.IncomeMultiplier
		}
	}
	return 1 + bonus
}

// ZoneIncomeMultiplier is the selected zone's multiplier, but only while the
// zone is unlocked and its VIP gate (if any) is satisfied. Anything else
// falls back to 1.
func ZoneIncomeMultiplier(catalog *Catalog, data *PlayerSaveData) float64 {
	zone := catalog.Zone(data.SelectedZone)
	if zone == nil || !data.HasZone(zone.ID) {
		return 1.0
	}
	if zone.IsVIP && !data.HasVIP {
		return 1.0
	}
	return zone.IncomeMultiplier
}

// BoostIncomeMultiplier is the max over all non-expired purchased boosts.
// Expired entries are pruned as a side effect.
func BoostIncomeMultiplier(data *PlayerSaveData, now time.Time) float64 {
	best := 1.0
	for productID, expiresAt := range data.ActiveBoosts {
		if expiresAt <= now.Unix() {
			delete(data.ActiveBoosts, productID)
			continue
		}
		if mult, ok := boostMultipliers[productID]; ok && mult > best {
			best = mult
		}
	}
	return best
}

// GamepassIncomeMultiplier is the product of flat bonuses for owned
// entitlements.
func GamepassIncomeMultiplier(data *PlayerSaveData) float64 {
	mult := 1.0
	if data.HasDoubleCash {
		mult *= doubleCashMultiplier
	}
	return mult
}

// PremiumIncomeMultiplier is a flat bonus while any premium entitlement is
// held.
func PremiumIncomeMultiplier(data *PlayerSaveData) float64 {
	if data.HasPremium() {
		return premiumIncomeMultiplier
	}
	return 1.0
}

// IncomePerSecond composes the full pipeline for one tick. It always
// produces a number; missing config lookups default to neutral values.
func IncomePerSecond(catalog *Catalog, data *PlayerSaveData, now time.Time, mods EventModifiers) float64 {
	return baseIncomePerSecond*
		RebirthIncomeMultiplier(data.RebirthCount)*
		UpgradeIncomeMultiplier(catalog, data.UpgradeLevels)*
		ZoneIncomeMultiplier(catalog, data)*
		BoostIncomeMultiplier(data, now)*
		IdleStreakMultiplier(data.IdleStreak)*
		GamepassIncomeMultiplier(data)*
		PremiumIncomeMultiplier(data)*
		mods.IncomeMultiplier +
		mods.CurrencyBonus
}

// OfflineEarnings computes the one-time grant applied at session start from
// the elapsed wall-clock seconds since the last save. New players
// (lastSaveTime == 0) earn nothing. The offline_boost upgrade adds 10% per
// level on top of the halved income rate.
func OfflineEarnings(data *PlayerSaveData, now time.Time) float64 {
	if data.LastSaveTime == 0 {
		return 0
	}

	elapsed := now.Unix() - data.LastSaveTime
	if elapsed <= 0 {
		return 0
	}
	maxOffline := int64(offlineEarningsCapHours * 3600)
	if elapsed > maxOffline {
		elapsed = maxOffline
	}

	boost := 1.0
	if level, ok := data.UpgradeLevels["offline_boost"]; ok {
		boost += 0.1 * float64(level)
	}

	earnings := float64(elapsed) * baseIncomePerSecond * offlineEarningsMultiplier * boost
	return float64(int64(earnings)) // floor to whole currency
}
