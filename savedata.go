package main

import (
	"encoding/json"
	"log"
)

// DataVersion is bumped whenever the save schema changes; stored payloads at
// older versions are migrated on load.
const DataVersion = 1

// PlayerSaveData is the persisted, versioned per-player record. Currency is
// floating because sub-integer multipliers produce fractional tick income.
type PlayerSaveData struct {
	Version            int                `json:"version"`
	Currency           float64            `json:"currency"`
	LastSaveTime       int64              `json:"lastSaveTime"` // unix seconds; 0 = never saved
	RebirthCount       int                `json:"rebirthCount"`
	UpgradeLevels      map[string]int     `json:"upgradeLevels"`
	UnlockedZones      []string           `json:"unlockedZones"`
	SelectedZone       string             `json:"selectedZone"`
	HasVIP             bool               `json:"hasVIP"`
	HasDoubleCash      bool               `json:"hasDoubleCash"`
	HasAutoCollect     bool               `json:"hasAutoCollect"`
	ActiveBoosts       map[string]int64   `json:"activeBoosts"` // product id -> expiration unix seconds
	LastLoginDate      string             `json:"lastLoginDate"` // YYYY-MM-DD
	LoginStreak        int                `json:"loginStreak"`
	IdleStreak         int                `json:"idleStreak"`       // minutes of continuous presence
	TotalSessionTime   int64              `json:"totalSessionTime"` // lifetime minutes
	AFKRewardCooldown  int64              `json:"afkRewardCooldown"` // unix seconds
	UnlockedAchievements []string         `json:"unlockedAchievements"`
	DailyRewardsClaimed  int              `json:"dailyRewardsClaimed"`
	EventParticipation   map[string]int   `json:"eventParticipation"`
	Settings             map[string]string `json:"settings"`
	Friends              []int64           `json:"friends"`
}

func DefaultPlayerData() *PlayerSaveData {
	return &PlayerSaveData{
		Version:              DataVersion,
		Currency:             0,
		LastSaveTime:         0,
		RebirthCount:         0,
		UpgradeLevels:        map[string]int{},
		UnlockedZones:        []string{starterZoneID},
		SelectedZone:         starterZoneID,
		ActiveBoosts:         map[string]int64{},
		LastLoginDate:        "",
		LoginStreak:          0,
		IdleStreak:           0,
		TotalSessionTime:     0,
		AFKRewardCooldown:    0,
		UnlockedAchievements: []string{},
		DailyRewardsClaimed:  0,
		EventParticipation:   map[string]int{},
		Settings:             map[string]string{},
		Friends:              []int64{},
	}
}

// savePayload mirrors PlayerSaveData with pointer fields so migration can
// tell "absent" apart from "zero". Unknown fields in stored payloads are
// ignored by the decoder.
type savePayload struct {
	Version              *int               `json:"version"`
	Currency             *float64           `json:"currency"`
	LastSaveTime         *int64             `json:"lastSaveTime"`
	RebirthCount         *int               `json:"rebirthCount"`
	UpgradeLevels        map[string]int     `json:"upgradeLevels"`
	UnlockedZones        []string           `json:"unlockedZones"`
	SelectedZone         *string            `json:"selectedZone"`
	HasVIP               *bool              `json:"hasVIP"`
	HasDoubleCash        *bool              `json:"hasDoubleCash"`
	HasAutoCollect       *bool              `json:"hasAutoCollect"`
	ActiveBoosts         map[string]int64   `json:"activeBoosts"`
	LastLoginDate        *string            `json:"lastLoginDate"`
	LoginStreak          *int               `json:"loginStreak"`
	IdleStreak           *int               `json:"idleStreak"`
	TotalSessionTime     *int64             `json:"totalSessionTime"`
	AFKRewardCooldown    *int64             `json:"afkRewardCooldown"`
	UnlockedAchievements []string           `json:"unlockedAchievements"`
	DailyRewardsClaimed  *int               `json:"dailyRewardsClaimed"`
	EventParticipation   map[string]int     `json:"eventParticipation"`
	Settings             map[string]string  `json:"settings"`
	Friends              []int64            `json:"friends"`
}

// MigrateSaveData turns stored bytes of any known schema version into a
// fully-populated current-version record. Every field defaults
// independently, so old saves gain new fields for free; malformed payloads
// fall back to defaults rather than failing the load.
func MigrateSaveData(raw []byte) *PlayerSaveData {
	data := DefaultPlayerData()

	var payload savePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("[datastore] malformed save payload, using defaults: %v", err)
		return data
	}

	if payload.Version != nil && *payload.Version < DataVersion {
		log.Printf("[datastore] migrating save data from version %d to %d", *payload.Version, DataVersion)
	}

	if payload.Currency != nil {
		data.Currency = *payload.Currency
	}
	if payload.LastSaveTime != nil {
		data.LastSaveTime = *payload.LastSaveTime
	}
	if payload.RebirthCount != nil {
		data.RebirthCount = *payload.RebirthCount
	}
	if payload.UpgradeLevels != nil {
		data.UpgradeLevels = payload.UpgradeLevels
	}
	if payload.UnlockedZones != nil {
		data.UnlockedZones = payload.UnlockedZones
	}
	if payload.SelectedZone != nil {
		data.SelectedZone = *payload.SelectedZone
	}
	if payload.HasVIP != nil {
		data.HasVIP = *payload.HasVIP
	}
	if payload.HasDoubleCash != nil {
		data.HasDoubleCash = *payload.HasDoubleCash
	}
	if payload.HasAutoCollect != nil {
		data.HasAutoCollect = *payload.HasAutoCollect
	}
	if payload.ActiveBoosts != nil {
		data.ActiveBoosts = payload.ActiveBoosts
	}
	if payload.LastLoginDate != nil {
		data.LastLoginDate = *payload.LastLoginDate
	}
	if payload.LoginStreak != nil {
		data.LoginStreak = *payload.LoginStreak
	}
	if payload.IdleStreak != nil {
		data.IdleStreak = *payload.IdleStreak
	}
	if payload.TotalSessionTime != nil {
		data.TotalSessionTime = *payload.TotalSessionTime
	}
	if payload.AFKRewardCooldown != nil {
		data.AFKRewardCooldown = *payload.AFKRewardCooldown
	}
	if payload.UnlockedAchievements != nil {
		data.UnlockedAchievements = payload.UnlockedAchievements
	}
	if payload.DailyRewardsClaimed != nil {
		data.DailyRewardsClaimed = *payload.DailyRewardsClaimed
	}
	if payload.EventParticipation != nil {
		data.EventParticipation = payload.EventParticipation
	}
	if payload.Settings != nil {
		data.Settings = payload.Settings
	}
	if payload.Friends != nil {
		data.Friends = payload.Friends
	}

	// The starter zone is always unlocked, and the selected zone must be a
	// member of the unlocked set.
	data.ensureZoneInvariants()

	data.Version = DataVersion
	return data
}

func (d *PlayerSaveData) ensureZoneInvariants() {
	if !d.HasZone(starterZoneID) {
		d.UnlockedZones = append(d.UnlockedZones, starterZoneID)
	}
	if d.SelectedZone == "" || !d.HasZone(d.SelectedZone) {
		d.SelectedZone = starterZoneID
	}
}

func (d *PlayerSaveData) HasZone(zoneID string) bool {
	for _, id := range d.UnlockedZones {
		if id == zoneID {
			return true
		}
	}
	return false
}

func (d *PlayerSaveData) HasAchievement(id string) bool {
	for _, a := range d.UnlockedAchievements {
		if a == id {
			return true
		}
	}
	return false
}

// HasPremium reports whether any premium entitlement is held.
func (d *PlayerSaveData) HasPremium() bool {
	return d.HasVIP || d.HasDoubleCash
}

// TotalUpgradeLevels is the sum of all owned upgrade levels.
func (d *PlayerSaveData) TotalUpgradeLevels() int {
	total := 0
	for _, level := range d.UpgradeLevels {
		total += level
	}
	return total
}
