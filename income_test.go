package main

import (
	"testing"
	"time"
)

func testTime() time.Time {
	return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
}

func TestIncomePerSecond_NewPlayerEarnsBase(t *testing.T) {
	c := defaultCatalog()
	d := DefaultPlayerData()

	got := IncomePerSecond(c, d, testTime(), neutralModifiers())
	if got != baseIncomePerSecond {
		t.Fatalf("new player income = %v, want %v", got, baseIncomePerSecond)
	}
}

func TestIncomePerSecond_ComposesMultiplicatively(t *testing.T) {
	c := defaultCatalog()
	d := DefaultPlayerData()
	d.RebirthCount = 1                       // x1.5
	d.UpgradeLevels["income_boost_1"] = 2    // x1.2 (1 + 2*0.1)
	d.UnlockedZones = []string{"zone_1", "zone_2"}
	d.SelectedZone = "zone_2"                // x1.5

	got := IncomePerSecond(c, d, testTime(), neutralModifiers())
	want := 1.0 * 1.5 * 1.2 * 1.5
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("composed income = %v, want %v", got, want)
	}
}

func TestIncomePerSecond_EventModifiersApply(t *testing.T) {
	c := defaultCatalog()
	d := DefaultPlayerData()

	mods := neutralModifiers()
	mods.IncomeMultiplier = 3.0
	mods.CurrencyBonus = 10

	got := IncomePerSecond(c, d, testTime(), mods)
	if got != 13.0 {
		t.Fatalf("event income = %v, want 13 (1*3 + 10)", got)
	}
}

func TestZoneIncomeMultiplier_Gating(t *testing.T) {
	c := defaultCatalog()

	d := DefaultPlayerData()
	d.SelectedZone = "zone_3" // selected but never unlocked
	if got := ZoneIncomeMultiplier(c, d); got != 1.0 {
		t.Fatalf("locked zone multiplier = %v, want 1", got)
	}

	d.UnlockedZones = append(d.UnlockedZones, "zone_vip")
	d.SelectedZone = "zone_vip"
	if got := ZoneIncomeMultiplier(c, d); got != 1.0 {
		t.Fatalf("VIP zone without pass = %v, want 1", got)
	}
	d.HasVIP = true
	if got := ZoneIncomeMultiplier(c, d); got != 3.0 {
		t.Fatalf("VIP zone with pass = %v, want 3", got)
	}
}

func TestBoostIncomeMultiplier_MaxWinsAndExpiredPruned(t *testing.T) {
	now := testTime()
	d := DefaultPlayerData()
	d.ActiveBoosts[ProductBoost2x] = now.Unix() + 100
	d.ActiveBoosts[ProductBoost5x] = now.Unix() + 100

	if got := BoostIncomeMultiplier(d, now); got != 5.0 {
		t.Fatalf("stacked boosts = %v, want max 5", got)
	}

	d.ActiveBoosts[ProductBoost5x] = now.Unix() - 1
	if got := BoostIncomeMultiplier(d, now); got != 2.0 {
		t.Fatalf("after 5x expiry = %v, want 2", got)
	}
	if _, still := d.ActiveBoosts[ProductBoost5x]; still {
		t.Fatal("expired boost should be pruned")
	}
}

func TestOfflineEarnings(t *testing.T) {
	now := testTime()

	d := DefaultPlayerData()
	if got := OfflineEarnings(d, now); got != 0 {
		t.Fatalf("never-saved player offline earnings = %v, want 0", got)
	}

	// Two hours offline at half rate: floor(7200 * 1.0 * 0.5) = 3600.
	d.LastSaveTime = now.Add(-2 * time.Hour).Unix()
	if got := OfflineEarnings(d, now); got != 3600 {
		t.Fatalf("2h offline = %v, want 3600", got)
	}

	// Cap at 24 hours even after a week away.
	d.LastSaveTime = now.Add(-7 * 24 * time.Hour).Unix()
	capped := OfflineEarnings(d, now)
	if capped != float64(24*3600)*offlineEarningsMultiplier {
		t.Fatalf("week offline = %v, want capped %v", capped, float64(24*3600)*offlineEarningsMultiplier)
	}

	// offline_boost adds 10% per level.
	d.LastSaveTime = now.Add(-2 * time.Hour).Unix()
	d.UpgradeLevels["offline_boost"] = 3
	if got := OfflineEarnings(d, now); got != 4680 { // 3600 * 1.3
		t.Fatalf("boosted 2h offline = %v, want 4680", got)
	}

	// A save timestamp in the future earns nothing.
	d.LastSaveTime = now.Add(time.Hour).Unix()
	if got := OfflineEarnings(d, now); got != 0 {
		t.Fatalf("future save time = %v, want 0", got)
	}
}
