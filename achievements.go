package main

import (
	"log"
	"math"
	"strings"
)

// achievementValue derives the current progress value for an achievement
// from the player's save data, by category. Unknown categories yield 0, so
// evaluation is total.
func achievementValue(catalog *Catalog, data *PlayerSaveData, a *Achievement) int64 {
	switch a.Category {
	case "currency":
		return int64(data.Currency)
	case "rebirth":
		return int64(data.RebirthCount)
	case "upgrade":
		if a.ID == "max_upgrade" {
			return boolValue(anyUpgradeMaxed(catalog, data))
		}
		return int64(data.TotalUpgradeLevels())
	case "zone":
		return int64(len(data.UnlockedZones))
	case "time":
		return data.TotalSessionTime
	case "streak":
		if strings.Contains(a.ID, "login") {
			return int64(data.LoginStreak)
		}
		return int64(data.IdleStreak)
	case "milestone":
		switch a.ID {
		case "first_vip":
			return boolValue(data.HasVIP)
		case "claim_daily":
			return int64(data.DailyRewardsClaimed)
		}
	}
	return 0
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func anyUpgradeMaxed(catalog *Catalog, data *PlayerSaveData) bool {
	for id, level := range data.UpgradeLevels {
		u := catalog.Upgrade(id)
		if u != nil && u.MaxLevel > 0 && level >= u.MaxLevel {
			return true
		}
	}
	return false
}

// AchievementProgress is min(100, floor(100 × current/requirement));
// unlocked achievements always report 100.
func AchievementProgress(catalog *Catalog, data *PlayerSaveData, a *Achievement) int {
	if data.HasAchievement(a.ID) {
		return 100
	}
	if a.Requirement <= 0 {
		return 100
	}
	current := achievementValue(catalog, data, a)
	progress := int(math.Floor(100 * float64(current) / float64(a.Requirement)))
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}
	return progress
}

func (s *EconomyService) achievementProgress(data *PlayerSaveData) map[string]int {
	progress := make(map[string]int, len(s.catalog.Achievements))
	for i := range s.catalog.Achievements {
		a := &s.catalog.Achievements[i]
		progress[a.ID] = AchievementProgress(s.catalog, data, a)
	}
	return progress
}

// evaluateAchievements checks every not-yet-unlocked achievement against the
// player's current state and unlocks those whose requirement is met. Unlock
// is monotonic and idempotent; rewards flow through the standard currency
// primitive, scaled by any active event reward multiplier. Caller holds
// p.mu.
func (s *EconomyService) evaluateAchievements(p *PlayerState) {
	if p.checking {
		return
	}
	p.checking = true
	defer func() { p.checking = false }()

	unlockedAny := false
	for i := range s.catalog.Achievements {
		a := &s.catalog.Achievements[i]
		if p.Save.HasAchievement(a.ID) {
			continue
		}
		if achievementValue(s.catalog, p.Save, a) < a.Requirement {
			continue
		}

		p.Save.UnlockedAchievements = append(p.Save.UnlockedAchievements, a.ID)
		unlockedAny = true

		reward := a.Reward
		if reward > 0 {
			mods := s.modifiers(s.now())
			scaled := math.Floor(float64(reward) * mods.RewardMultiplier)
			s.addCurrency(p, scaled)
		}

		p.push(AchievementUnlockedEvent, AchievementUnlocked{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Icon:        a.Icon,
			Reward:      a.Reward,
		})
		log.Printf("[achievements] %s unlocked %s", p.Username, a.ID)
	}

	if unlockedAny {
		p.push(AchievementsUpdateEvent, AchievementsUpdate{UnlockedIDs: append([]string{}, p.Save.UnlockedAchievements...)})
		p.push(AchievementProgressUpdateEvent, AchievementProgressUpdate{Progress: s.achievementProgress(p.Save)})
	}
}
