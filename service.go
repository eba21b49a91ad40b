package main

import (
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// EventSink receives outbound server->client events for one player session.
type EventSink interface {
	Send(eventType string, payload interface{})
}

// PlayerState is the in-memory aggregate for one connected player: the
// persisted save data plus session-only fields. All access goes through mu;
// the tick loop and request handlers for the same player are mutually
// exclusive.
type PlayerState struct {
	mu sync.Mutex

	UserID   int64
	Username string
	Key      string
	Save     *PlayerSaveData

	sessionStart    time.Time
	idleStreakStart time.Time
	sessionTimeMark time.Time // advanced by whole minutes consumed, never snapped to now
	lastActivity    time.Time

	refresh        *rate.Limiter
	checking       bool            // re-entrancy guard for achievement evaluation
	countedWindows map[string]bool // event windows already counted this session

	sink EventSink
}

func (p *PlayerState) push(eventType string, payload interface{}) {
	if p.sink == nil {
		return
	}
	p.sink.Send(eventType, payload)
}

// EconomyService owns the registry of connected players and every mutation
// of their state. There is no ambient global: handlers, the tick loops, and
// the scheduler all go through the service instance.
type EconomyService struct {
	store   *DataStore
	boards  SnapshotStore
	catalog *Catalog
	events  *EventScheduler

	now func() time.Time

	mu      sync.RWMutex
	players map[int64]*PlayerState
}

func NewEconomyService(store *DataStore, boards SnapshotStore, catalog *Catalog) *EconomyService {
	return &EconomyService{
		store:   store,
		boards:  boards,
		catalog: catalog,
		now:     time.Now,
		players: map[int64]*PlayerState{},
	}
}

// SetEventScheduler wires the scheduler after construction (the scheduler's
// broadcast closure needs the service, so the two are built in two steps).
func (s *EconomyService) SetEventScheduler(events *EventScheduler) {
	s.events = events
}

func (s *EconomyService) modifiers(now time.Time) EventModifiers {
	if s.events == nil {
		return neutralModifiers()
	}
	return s.events.ActiveModifiers(now)
}

// OnPlayerJoin loads (or defaults) the player's record, applies offline
// earnings, rolls the login streak, registers the state, and fires the full
// outbound sync. Load exhaustion falls back to defaults: the player proceeds
// with a fresh-looking account rather than being blocked.
func (s *EconomyService) OnPlayerJoin(userID int64, username string, sink EventSink) *PlayerState {
	now := s.now()
	key := playerKey(userID)

	// A reconnect can arrive before the old connection's death is noticed.
	// Evict and persist the displaced session first so the fresh load picks
	// up its progress.
	s.mu.Lock()
	displaced := s.players[userID]
	delete(s.players, userID)
	s.mu.Unlock()
	if displaced != nil {
		log.Printf("[currency] %s rejoined, displacing previous session", username)
		if err := s.saveNow(displaced); err != nil {
			log.Printf("[currency] failed to save displaced session for %s: %v", username, err)
		}
	}

	save, err := s.store.LoadPlayerData(key)
	if err != nil {
		log.Printf("[currency] failed to load data for %s, using defaults: %v", key, err)
		save = DefaultPlayerData()
	}

	offline := OfflineEarnings(save, now)
	if offline > 0 {
		save.Currency += offline
		hours := (now.Unix() - save.LastSaveTime) / 3600
		log.Printf("[currency] %s was offline for %d hours, earning %.0f currency", username, hours, offline)
	}

	rollLoginStreak(save, currentDateString(now))

	p := &PlayerState{
		UserID:          userID,
		Username:        username,
		Key:             key,
		Save:            save,
		sessionStart:    now,
		idleStreakStart: now,
		sessionTimeMark: now,
		lastActivity:    now,
		refresh:         rate.NewLimiter(rate.Every(achievementRefreshInterval), 1),
		countedWindows:  map[string]bool{},
		sink:            sink,
	}
	save.IdleStreak = 0

	s.mu.Lock()
	s.players[userID] = p
	s.mu.Unlock()

	p.mu.Lock()
	s.syncAll(p)
	p.mu.Unlock()

	log.Printf("[currency] loaded player %s: %.1f currency, %d rebirths", username, save.Currency, save.RebirthCount)
	return p
}

// OnPlayerLeave saves best-effort and discards the in-memory record. Leave
// is session-scoped: a stale connection's leave after a reconnect has
// displaced it is a no-op, since the displaced state was already persisted
// at eviction. If the save fails after retries the record is discarded
// anyway; offline earnings on next load bound the loss to one save interval.
func (s *EconomyService) OnPlayerLeave(p *PlayerState) {
	s.mu.Lock()
	current, ok := s.players[p.UserID]
	if ok && current == p {
		delete(s.players, p.UserID)
	}
	s.mu.Unlock()
	if !ok || current != p {
		return
	}

	if err := s.saveNow(p); err != nil {
		log.Printf("[currency] failed to save data for %s on leave: %v", p.Username, err)
	}
	log.Printf("[currency] removed player %s from currency system", p.Username)
}

func (s *EconomyService) Player(userID int64) (*PlayerState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[userID]
	return p, ok
}

func (s *EconomyService) forEachPlayer(fn func(*PlayerState)) {
	s.mu.RLock()
	snapshot := make([]*PlayerState, 0, len(s.players))
	for _, p := range s.players {
		snapshot = append(snapshot, p)
	}
	s.mu.RUnlock()

	for _, p := range snapshot {
		fn(p)
	}
}

// ProcessIncomeTick runs the income pipeline once for every connected
// player. Compute-only; persistence happens on its own interval.
func (s *EconomyService) ProcessIncomeTick() {
	now := s.now()
	mods := s.modifiers(now)

	s.forEachPlayer(func(p *PlayerState) {
		p.mu.Lock()
		s.advanceSessionClocks(p, now)
		s.countEventParticipation(p, mods)
		income := IncomePerSecond(s.catalog, p.Save, now, mods)
		s.addCurrency(p, income)
		p.mu.Unlock()
	})
}

// advanceSessionClocks updates the idle streak and lifetime session time.
// The session-time marker advances by whole consumed minutes so fractional
// minutes carry forward instead of being dropped.
func (s *EconomyService) advanceSessionClocks(p *PlayerState, now time.Time) {
	p.Save.IdleStreak = int(now.Sub(p.idleStreakStart) / time.Minute)

	mins := int64(now.Sub(p.sessionTimeMark) / time.Minute)
	if mins > 0 {
		p.Save.TotalSessionTime += mins
		p.sessionTimeMark = p.sessionTimeMark.Add(time.Duration(mins) * time.Minute)
	}
}

// countEventParticipation bumps each active event's counter once per window
// per session.
func (s *EconomyService) countEventParticipation(p *PlayerState, mods EventModifiers) {
	for eventID, windowKey := range mods.WindowKeys {
		token := eventID + "|" + windowKey
		if p.countedWindows[token] {
			continue
		}
		p.countedWindows[token] = true
		p.Save.EventParticipation[eventID]++
	}
}

// SaveAll dispatches one save per connected player. Each save runs in its
// own goroutine so a slow store never blocks the tick loop.
func (s *EconomyService) SaveAll() {
	s.forEachPlayer(func(p *PlayerState) {
		s.SaveAsync(p)
	})
}

func (s *EconomyService) SaveAsync(p *PlayerState) {
	if s.store.HasPendingSave(p.Key) {
		return
	}
	go func() {
		if err := s.saveNow(p); err != nil && err != ErrSavePending {
			log.Printf("[currency] failed to save data for %s: %v", p.Username, err)
		}
	}()
}

// saveNow serializes a snapshot of the player's data and writes it through
// the gateway, then refreshes the leaderboard snapshot. The copy is taken
// under the player lock; the write happens outside it.
func (s *EconomyService) saveNow(p *PlayerState) error {
	p.mu.Lock()
	data := p.Save.Clone()
	username := p.Username
	userID := p.UserID
	p.mu.Unlock()

	if err := s.store.SavePlayerData(p.Key, data); err != nil {
		return err
	}

	if err := s.boards.Upsert(LeaderboardSnapshot{
		AccountID: userID,
		Username:  username,
		Currency:  data.Currency,
		Rebirths:  data.RebirthCount,
		Playtime:  data.TotalSessionTime,
	}); err != nil {
		log.Printf("[leaderboard] snapshot upsert failed for %s: %v", username, err)
	}
	return nil
}

// BroadcastEventUpdate pushes the active-event list to every connected
// player. Wired as the scheduler's broadcast callback.
func (s *EconomyService) BroadcastEventUpdate(active []ActiveEvent) {
	s.forEachPlayer(func(p *PlayerState) {
		p.push(EventUpdateEvent, active)
	})
}

// syncAll fires the full set of outbound sync events. Caller holds p.mu.
func (s *EconomyService) syncAll(p *PlayerState) {
	p.push(CurrencyUpdateEvent, CurrencyUpdate{Balance: p.Save.Currency})
	p.push(RebirthCountUpdateEvent, RebirthCountUpdate{Count: p.Save.RebirthCount})
	p.push(PlayerDataUpdateEvent, playerDataView(p.Save))
	p.push(AchievementsUpdateEvent, AchievementsUpdate{UnlockedIDs: append([]string{}, p.Save.UnlockedAchievements...)})
	p.push(AchievementProgressUpdateEvent, AchievementProgressUpdate{Progress: s.achievementProgress(p.Save)})
	if s.events != nil {
		p.push(EventUpdateEvent, s.events.ActiveEvents())
	}
}

// Clone deep-copies the save record so persistence can marshal it outside
// the player lock.
func (d *PlayerSaveData) Clone() *PlayerSaveData {
	c := *d
	c.UpgradeLevels = make(map[string]int, len(d.UpgradeLevels))
	for k, v := range d.UpgradeLevels {
		c.UpgradeLevels[k] = v
	}
	c.UnlockedZones = append([]string{}, d.UnlockedZones...)
	c.ActiveBoosts = make(map[string]int64, len(d.ActiveBoosts))
	for k, v := range d.ActiveBoosts {
		c.ActiveBoosts[k] = v
	}
	c.UnlockedAchievements = append([]string{}, d.UnlockedAchievements...)
	c.EventParticipation = make(map[string]int, len(d.EventParticipation))
	for k, v := range d.EventParticipation {
		c.EventParticipation[k] = v
	}
	c.Settings = make(map[string]string, len(d.Settings))
	for k, v := range d.Settings {
		c.Settings[k] = v
	}
	c.Friends = append([]int64{}, d.Friends...)
	return &c
}

/* ======================
   Login streak & dates
   ====================== */

// rollLoginStreak runs once per session start: yesterday continues the
// streak, any other previous day resets it to 1, first-ever login starts at
// 1, and rejoining on the same day changes nothing. lastLoginDate itself is
// only advanced by the daily claim handler.
func rollLoginStreak(data *PlayerSaveData, today string) {
	switch {
	case data.LastLoginDate == today:
		// Rejoin on the same calendar day.
	case data.LastLoginDate == "":
		data.LoginStreak = 1
	case isYesterday(data.LastLoginDate, today):
		data.LoginStreak++
	default:
		data.LoginStreak = 1
	}
}

func currentDateString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func isYesterday(dateString, today string) bool {
	parsed, err := time.Parse("2006-01-02", dateString)
	if err != nil {
		return false
	}
	return parsed.AddDate(0, 0, 1).Format("2006-01-02") == today
}
