package main

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Income configuration
const (
	baseIncomePerSecond = 1.0
	incomeTickInterval  = 1 // seconds

	offlineEarningsCapHours   = 24
	offlineEarningsMultiplier = 0.5
)

// Rebirth cost curve
const (
	rebirthBaseCost         = 1000
	rebirthCostMultiplier   = 2.5
	rebirthIncomeMultiplier = 1.5
)

// Retention constants
const (
	afkRewardInterval   = 300 // seconds between AFK chest claims
	afkRewardBase       = 50
	afkRewardMultiplier = 1.1 // per streak level (one level per 5 idle minutes)

	dailyRewardBase             = 100
	dailyRewardStreakMultiplier = 1.2
	maxLoginStreakBonus         = 7

	premiumIncomeMultiplier = 1.25
	premiumRewardMultiplier = 1.5
)

// Idle streak step function: highest threshold met wins.
var (
	idleStreakIntervals   = []int{5, 15, 30, 60, 120} // minutes
	idleStreakMultipliers = []float64{1.1, 1.2, 1.3, 1.5, 2.0}
)

// Monetization product and gamepass ids.
const (
	PassDoubleCash  = "gamepass_double_cash"
	PassAutoCollect = "gamepass_auto_collect"
	PassVIP         = "gamepass_vip"

	ProductBoost2x     = "product_boost_2x_1h"
	ProductBoost5x     = "product_boost_5x_1h"
	ProductRebirthSkip = "product_rebirth_skip"

	boostDurationSeconds = 3600
	doubleCashMultiplier = 2.0
)

var boostMultipliers = map[string]float64{
	ProductBoost2x: 2.0,
	ProductBoost5x: 5.0,
}

type Upgrade struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	Description      string  `yaml:"description"`
	BaseCost         int64   `yaml:"baseCost"`
	CostMultiplier   float64 `yaml:"costMultiplier"`
	IncomeMultiplier float64 `yaml:"incomeMultiplier"` // additive bonus per level
	MaxLevel         int     `yaml:"maxLevel"`         // -1 for unlimited
	ZoneRequired     string  `yaml:"zoneRequired,omitempty"`
}

type Zone struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	Description      string  `yaml:"description"`
	UnlockCost       int64   `yaml:"unlockCost"`
	IncomeMultiplier float64 `yaml:"incomeMultiplier"`
	IsVIP            bool    `yaml:"isVIP"`
}

type Achievement struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Category    string `yaml:"category"` // currency, rebirth, upgrade, zone, time, streak, milestone
	Requirement int64  `yaml:"requirement"`
	Reward      int64  `yaml:"reward,omitempty"`
}

// GameEvent is the static rule half of a global event; live activation state
// is owned by the EventScheduler.
type GameEvent struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	Description      string  `yaml:"description"`
	Icon             string  `yaml:"icon"`
	IncomeMultiplier float64 `yaml:"incomeMultiplier"`
	CurrencyBonus    float64 `yaml:"currencyBonus"`  // flat currency per second while active
	RewardMultiplier float64 `yaml:"rewardMultiplier"`
	RebirthDiscount  float64 `yaml:"rebirthDiscount,omitempty"` // 0.5 = half-price rebirths
	Rule             string  `yaml:"rule"`                      // biweekly_weekend, daily_hour, month_start_weekend
	RuleHour         int     `yaml:"ruleHour,omitempty"`
}

type Catalog struct {
	Upgrades     []Upgrade     `yaml:"upgrades"`
	Zones        []Zone        `yaml:"zones"`
	Achievements []Achievement `yaml:"achievements"`
	Events       []GameEvent   `yaml:"events"`
}

const starterZoneID = "zone_1"

func defaultCatalog() *Catalog {
	return &Catalog{
		Upgrades: []Upgrade{
			{ID: "income_boost_1", Name: "Income Boost I", Description: "+10% income per level", BaseCost: 100, CostMultiplier: 1.5, IncomeMultiplier: 0.1, MaxLevel: 10},
			{ID: "income_boost_2", Name: "Income Boost II", Description: "+25% income per level", BaseCost: 500, CostMultiplier: 2.0, IncomeMultiplier: 0.25, MaxLevel: 5, ZoneRequired: "zone_2"},
			{ID: "auto_collect", Name: "Auto Collect", Description: "Automatically collect currency (cosmetic)", BaseCost: 1000, CostMultiplier: 1.0, IncomeMultiplier: 0, MaxLevel: 1},
			{ID: "offline_boost", Name: "Offline Earnings", Description: "+10% offline earnings per level", BaseCost: 200, CostMultiplier: 1.8, IncomeMultiplier: 0, MaxLevel: 5},
		},
		Zones: []Zone{
			{ID: "zone_1", Name: "Starter Zone", Description: "Your starting area", UnlockCost: 0, IncomeMultiplier: 1.0},
			{ID: "zone_2", Name: "Forest Zone", Description: "A peaceful forest with better rewards", UnlockCost: 5000, IncomeMultiplier: 1.5},
			{ID: "zone_3", Name: "Mountain Zone", Description: "High altitude, high rewards", UnlockCost: 25000, IncomeMultiplier: 2.0},
			{ID: "zone_vip", Name: "VIP Zone", Description: "Exclusive zone for VIP members", UnlockCost: 0, IncomeMultiplier: 3.0, IsVIP: true},
		},
		Achievements: []Achievement{
			{ID: "first_dollar", Name: "First Dollar", Description: "Earn your first dollar", Icon: "💰", Category: "currency", Requirement: 1, Reward: 10},
			{ID: "hundred_dollars", Name: "Hundredaire", Description: "Earn $100", Icon: "💵", Category: "currency", Requirement: 100, Reward: 50},
			{ID: "thousand_dollars", Name: "Thousandaire", Description: "Earn $1,000", Icon: "💴", Category: "currency", Requirement: 1000, Reward: 200},
			{ID: "million_dollars", Name: "Millionaire", Description: "Earn $1,000,000", Icon: "💶", Category: "currency", Requirement: 1000000, Reward: 10000},
			{ID: "first_rebirth", Name: "Reborn", Description: "Complete your first rebirth", Icon: "🔄", Category: "rebirth", Requirement: 1, Reward: 500},
			{ID: "ten_rebirths", Name: "Rebirth Master", Description: "Complete 10 rebirths", Icon: "⭐", Category: "rebirth", Requirement: 10, Reward: 5000},
			{ID: "hundred_rebirths", Name: "Rebirth Legend", Description: "Complete 100 rebirths", Icon: "👑", Category: "rebirth", Requirement: 100, Reward: 100000},
			{ID: "first_upgrade", Name: "Upgrade Novice", Description: "Purchase your first upgrade", Icon: "⬆️", Category: "upgrade", Requirement: 1, Reward: 100},
			{ID: "ten_upgrades", Name: "Upgrade Enthusiast", Description: "Purchase 10 upgrades total", Icon: "📈", Category: "upgrade", Requirement: 10, Reward: 1000},
			{ID: "max_upgrade", Name: "Maxed Out", Description: "Max out any upgrade", Icon: "🏆", Category: "upgrade", Requirement: 1, Reward: 5000},
			{ID: "unlock_zone", Name: "Explorer", Description: "Unlock your first zone", Icon: "🗺️", Category: "zone", Requirement: 2, Reward: 200},
			{ID: "all_zones", Name: "World Traveler", Description: "Unlock all zones", Icon: "🌍", Category: "zone", Requirement: 4, Reward: 10000},
			{ID: "play_hour", Name: "Dedicated", Description: "Play for 1 hour total", Icon: "⏰", Category: "time", Requirement: 60, Reward: 500},
			{ID: "play_day", Name: "Marathon", Description: "Play for 24 hours total", Icon: "🎯", Category: "time", Requirement: 1440, Reward: 50000},
			{ID: "idle_30min", Name: "Idle Master", Description: "Idle for 30 minutes straight", Icon: "😴", Category: "streak", Requirement: 30, Reward: 300},
			{ID: "idle_2hours", Name: "AFK Champion", Description: "Idle for 2 hours straight", Icon: "💤", Category: "streak", Requirement: 120, Reward: 2000},
			{ID: "login_7days", Name: "Loyal Player", Description: "Login for 7 days straight", Icon: "🔥", Category: "streak", Requirement: 7, Reward: 5000},
			{ID: "first_vip", Name: "VIP Status", Description: "Purchase VIP Zone access", Icon: "💎", Category: "milestone", Requirement: 1, Reward: 1000},
			{ID: "claim_daily", Name: "Daily Grinder", Description: "Claim 10 daily rewards", Icon: "📅", Category: "milestone", Requirement: 10, Reward: 2000},
		},
		Events: []GameEvent{
			{ID: "double_income_weekend", Name: "Double Income Weekend", Description: "2× income for all players!", Icon: "🎉", IncomeMultiplier: 2.0, CurrencyBonus: 0, RewardMultiplier: 1.0, Rule: "biweekly_weekend"},
			{ID: "lucky_hour", Name: "Lucky Hour", Description: "3× income + bonus currency!", Icon: "🍀", IncomeMultiplier: 3.0, CurrencyBonus: 10, RewardMultiplier: 1.5, Rule: "daily_hour", RuleHour: 12},
			{ID: "rebirth_festival", Name: "Rebirth Festival", Description: "50% off rebirth costs!", Icon: "🔄", IncomeMultiplier: 1.0, CurrencyBonus: 0, RewardMultiplier: 1.0, RebirthDiscount: 0.5, Rule: "month_start_weekend"},
		},
	}
}

// LoadCatalog returns the compiled-in catalog, overlaid with the YAML file at
// path when one is provided. A section present in the file replaces that
// section wholesale.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := defaultCatalog()
	if path == "" {
		return catalog, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var overlay Catalog
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if len(overlay.Upgrades) > 0 {
		catalog.Upgrades = overlay.Upgrades
	}
	if len(overlay.Zones) > 0 {
		catalog.Zones = overlay.Zones
	}
	if len(overlay.Achievements) > 0 {
		catalog.Achievements = overlay.Achievements
	}
	if len(overlay.Events) > 0 {
		catalog.Events = overlay.Events
	}
	return catalog, nil
}

func (c *Catalog) Upgrade(id string) *Upgrade {
	for i := range c.Upgrades {
		if c.Upgrades[i].ID == id {
			return &c.Upgrades[i]
		}
	}
	return nil
}

func (c *Catalog) Zone(id string) *Zone {
	for i := range c.Zones {
		if c.Zones[i].ID == id {
			return &c.Zones[i]
		}
	}
	return nil
}

func (c *Catalog) Achievement(id string) *Achievement {
	for i := range c.Achievements {
		if c.Achievements[i].ID == id {
			return &c.Achievements[i]
		}
	}
	return nil
}

func (c *Catalog) Event(id string) *GameEvent {
	for i := range c.Events {
		if c.Events[i].ID == id {
			return &c.Events[i]
		}
	}
	return nil
}

/* ======================
   Cost & multiplier curves
   ====================== */

// RebirthCost is the undiscounted cost of the next rebirth. Floor-truncated,
// not rounded: cost(0)=1000, cost(1)=2500, cost(2)=6250.
func RebirthCost(rebirthCount int) int64 {
	return int64(math.Floor(rebirthBaseCost * math.Pow(rebirthCostMultiplier, float64(rebirthCount))))
}

// DiscountedRebirthCost applies an event discount (1.0 = none) to the curve.
func DiscountedRebirthCost(rebirthCount int, discount float64) int64 {
	return int64(math.Floor(float64(RebirthCost(rebirthCount)) * discount))
}

// RebirthIncomeMultiplier is incomeMult^count; 0 rebirths yields exactly 1.
func RebirthIncomeMultiplier(rebirthCount int) float64 {
	if rebirthCount == 0 {
		return 1
	}
	return math.Pow(rebirthIncomeMultiplier, float64(rebirthCount))
}

// UpgradeCost is the cost of buying from level to level+1.
func UpgradeCost(u *Upgrade, level int) int64 {
	return int64(math.Floor(float64(u.BaseCost) * math.Pow(u.CostMultiplier, float64(level))))
}

// IdleStreakMultiplier is a step function over the configured minute
// thresholds; the highest threshold met wins.
func IdleStreakMultiplier(idleMinutes int) float64 {
	for i := len(idleStreakIntervals) - 1; i >= 0; i-- {
		if idleMinutes >= idleStreakIntervals[i] {
			return idleStreakMultipliers[i]
		}
	}
	return 1.0
}

// DailyLoginReward grows with the login streak, capped at 7 days of bonus.
func DailyLoginReward(loginStreak int) int64 {
	streakBonus := loginStreak
	if streakBonus > maxLoginStreakBonus {
		streakBonus = maxLoginStreakBonus
	}
	if streakBonus < 1 {
		streakBonus = 1
	}
	return int64(math.Floor(dailyRewardBase * math.Pow(dailyRewardStreakMultiplier, float64(streakBonus-1))))
}

// AFKReward scales with the idle streak: one reward level per 5 idle minutes.
func AFKReward(idleMinutes int) int64 {
	streakLevel := idleMinutes / 5
	return int64(math.Floor(afkRewardBase * math.Pow(afkRewardMultiplier, float64(streakLevel))))
}
