package main

import (
	"fmt"
	"log"
	"math"
)

// Response is the (success, message) pair answering every inbound request.
// Validation failures carry a specific human-readable reason and guarantee
// that no state was mutated.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func fail(format string, args ...interface{}) Response {
	return Response{Success: false, Message: fmt.Sprintf(format, args...)}
}

func ok(format string, args ...interface{}) Response {
	return Response{Success: true, Message: fmt.Sprintf(format, args...)}
}

func shortfall(cost int64, balance float64) int64 {
	return int64(math.Ceil(float64(cost) - balance))
}

// HandleRebirth zeroes currency in exchange for a permanent income
// multiplier step. High-value transition: saved immediately.
func (s *EconomyService) HandleRebirth(p *PlayerState) Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := s.now()
	discount := s.modifiers(now).RebirthDiscount
	cost := DiscountedRebirthCost(p.Save.RebirthCount, discount)

	if p.Save.Currency < float64(cost) {
		msg := fmt.Sprintf("Need %d more currency to rebirth!", shortfall(cost, p.Save.Currency))
		log.Printf("[rebirth] %s attempted rebirth but only has %.0f/%d currency", p.Username, p.Save.Currency, cost)
		return Response{Success: false, Message: msg}
	}

	p.Save.RebirthCount++
	p.Save.Currency = 0
	p.sessionStart = now

	p.push(CurrencyUpdateEvent, CurrencyUpdate{Balance: 0})
	p.push(RebirthCountUpdateEvent, RebirthCountUpdate{Count: p.Save.RebirthCount})
	s.evaluateAchievements(p)
	s.SaveAsync(p)

	log.Printf("[rebirth] %s performed rebirth #%d", p.Username, p.Save.RebirthCount)
	return ok("Rebirth %d complete! Income multiplier: %.2fx", p.Save.RebirthCount, RebirthIncomeMultiplier(p.Save.RebirthCount))
}

// HandleUpgradePurchase buys one level of an upgrade.
func (s *EconomyService) HandleUpgradePurchase(p *PlayerState, upgradeID string) Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	upgrade := s.catalog.Upgrade(upgradeID)
	if upgrade == nil {
		return fail("Upgrade not found")
	}
	if upgrade.ZoneRequired != "" && !p.Save.HasZone(upgrade.ZoneRequired) {
		zoneName := upgrade.ZoneRequired
		if zone := s.catalog.Zone(upgrade.ZoneRequired); zone != nil {
			zoneName = zone.Name
		}
		return fail("Requires %s", zoneName)
	}

	level := p.Save.UpgradeLevels[upgradeID]
	if upgrade.MaxLevel != -1 && level >= upgrade.MaxLevel {
		return fail("%s is already at max level", upgrade.Name)
	}

	cost := UpgradeCost(upgrade, level)
	if p.Save.Currency < float64(cost) {
		return fail("Need %d more currency for %s!", shortfall(cost, p.Save.Currency), upgrade.Name)
	}

	s.spendCurrency(p, cost)
	p.Save.UpgradeLevels[upgradeID] = level + 1

	p.push(PlayerDataUpdateEvent, playerDataView(p.Save))
	s.evaluateAchievements(p)

	return ok("Purchased %s (level %d)", upgrade.Name, level+1)
}

// HandleZoneUnlock unlocks and auto-selects a zone.
func (s *EconomyService) HandleZoneUnlock(p *PlayerState, zoneID string) Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	zone := s.catalog.Zone(zoneID)
	if zone == nil {
		return fail("Zone not found")
	}
	if p.Save.HasZone(zoneID) {
		return fail("%s is already unlocked", zone.Name)
	}
	if zone.IsVIP && !p.Save.HasVIP {
		return fail("%s requires the VIP gamepass", zone.Name)
	}
	if p.Save.Currency < float64(zone.UnlockCost) {
		return fail("Need %d more currency to unlock %s!", shortfall(zone.UnlockCost, p.Save.Currency), zone.Name)
	}

	s.spendCurrency(p, zone.UnlockCost)
	p.Save.UnlockedZones = append(p.Save.UnlockedZones, zoneID)
	p.Save.SelectedZone = zoneID

	p.push(PlayerDataUpdateEvent, playerDataView(p.Save))
	s.evaluateAchievements(p)

	return ok("Unlocked %s!", zone.Name)
}

// HandleZoneSelect switches the active zone. Gating ignores currency
// entirely: only membership and the VIP gate matter.
func (s *EconomyService) HandleZoneSelect(p *PlayerState, zoneID string) Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	zone := s.catalog.Zone(zoneID)
	if zone == nil {
		return fail("Zone not found")
	}
	if !p.Save.HasZone(zoneID) {
		return fail("%s is not unlocked", zone.Name)
	}
	if zone.IsVIP && !p.Save.HasVIP {
		return fail("%s requires the VIP gamepass", zone.Name)
	}

	p.Save.SelectedZone = zoneID
	p.push(PlayerDataUpdateEvent, playerDataView(p.Save))

	return ok("Selected %s", zone.Name)
}

// HandleAFKClaim grants the AFK chest once its cooldown has elapsed. The
// reward scales with the idle-streak level, the premium bonus, and any
// active event reward multiplier.
func (s *EconomyService) HandleAFKClaim(p *PlayerState) Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := s.now()
	if now.Unix() < p.Save.AFKRewardCooldown {
		remaining := p.Save.AFKRewardCooldown - now.Unix()
		minutes := (remaining + 59) / 60
		return fail("Reward available in %d minutes", minutes)
	}

	reward := float64(AFKReward(p.Save.IdleStreak))
	if p.Save.HasPremium() {
		reward *= premiumRewardMultiplier
	}
	reward = math.Floor(reward * s.modifiers(now).RewardMultiplier)

	s.addCurrency(p, reward)
	p.Save.AFKRewardCooldown = now.Unix() + afkRewardInterval

	return ok("Claimed %d currency from the AFK chest!", int64(reward))
}

// HandleDailyClaim grants the daily login reward once per calendar day and
// advances lastLoginDate. The streak itself rolls at session start.
func (s *EconomyService) HandleDailyClaim(p *PlayerState) Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := s.now()
	today := currentDateString(now)
	if p.Save.LastLoginDate == today {
		return fail("Daily reward already claimed today")
	}

	reward := float64(DailyLoginReward(p.Save.LoginStreak))
	if p.Save.HasPremium() {
		reward *= premiumRewardMultiplier
	}
	reward = math.Floor(reward * s.modifiers(now).RewardMultiplier)

	s.addCurrency(p, reward)
	p.Save.LastLoginDate = today
	p.Save.DailyRewardsClaimed++

	p.push(PlayerDataUpdateEvent, playerDataView(p.Save))
	s.evaluateAchievements(p)

	return ok("Daily reward claimed! +%d currency (day %d streak)", int64(reward), p.Save.LoginStreak)
}

// HandleSettingsUpdate merges a partial settings map into the save record.
// Settings are opaque to the server and passed through to clients.
func (s *EconomyService) HandleSettingsUpdate(p *PlayerState, updates map[string]string) Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, value := range updates {
		p.Save.Settings[key] = value
	}
	return ok("Settings saved")
}

// HandleLeaderboardQuery answers a top-N query for one of the snapshot
// columns. Only players whose data has been snapshotted appear; saves keep
// the snapshots fresh for everyone in session.
func (s *EconomyService) HandleLeaderboardQuery(p *PlayerState, kind string) (Response, []LeaderboardEntry) {
	if !validLeaderboardKind(kind) {
		return fail("Unknown leaderboard type %q", kind), nil
	}
	snaps, err := s.boards.Top(kind, leaderboardTopN)
	if err != nil {
		log.Printf("[leaderboard] query failed: %v", err)
		return fail("Leaderboard is unavailable right now"), nil
	}
	return ok("ok"), rankSnapshots(kind, snaps)
}

// HandleFriendsQuery batch-looks-up the player's friends in the snapshot
// store and joins the results before responding.
func (s *EconomyService) HandleFriendsQuery(p *PlayerState) (Response, []LeaderboardSnapshot) {
	p.mu.Lock()
	friends := append([]int64{}, p.Save.Friends...)
	p.mu.Unlock()

	if len(friends) == 0 {
		return ok("ok"), []LeaderboardSnapshot{}
	}
	snaps, err := s.boards.ByAccounts(friends)
	if err != nil {
		log.Printf("[leaderboard] friends query failed: %v", err)
		return fail("Friends data is unavailable right now"), nil
	}
	return ok("ok"), snaps
}
