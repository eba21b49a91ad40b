package main

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// ActiveEvent is the client-facing view of a currently-open event window.
type ActiveEvent struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Icon             string  `json:"icon"`
	StartTime        int64   `json:"startTime"`
	EndTime          int64   `json:"endTime"`
	IncomeMultiplier float64 `json:"incomeMultiplier"`
	CurrencyBonus    float64 `json:"currencyBonus"`
	RewardMultiplier float64 `json:"rewardMultiplier"`
}

// EventModifiers is the composed effect of all active events: multiplicative
// for income and reward multipliers, additive for the flat bonus.
type EventModifiers struct {
	IncomeMultiplier float64
	CurrencyBonus    float64
	RewardMultiplier float64
	RebirthDiscount  float64
	WindowKeys       map[string]string // event id -> current window key
}

func neutralModifiers() EventModifiers {
	return EventModifiers{IncomeMultiplier: 1, CurrencyBonus: 0, RewardMultiplier: 1, RebirthDiscount: 1}
}

type eventWindow struct {
	start time.Time
	end   time.Time
	key   string // calendar key of the window that opened it
}

// EventScheduler owns the live activation state for the global event catalog.
// Calendar rules open windows; windows close when their end time passes. The
// lastKey map prevents a rule from re-triggering inside the same calendar
// window after a manual deactivation or the window's natural end.
type EventScheduler struct {
	mu       sync.Mutex
	catalog  []GameEvent
	windows  map[string]eventWindow
	lastKeys map[string]string

	// broadcast pushes the active-event list to all connected players.
	broadcast func([]ActiveEvent)
}

func NewEventScheduler(catalog []GameEvent, broadcast func([]ActiveEvent)) *EventScheduler {
	if broadcast == nil {
		broadcast = func([]ActiveEvent) {}
	}
	return &EventScheduler{
		catalog:   catalog,
		windows:   map[string]eventWindow{},
		lastKeys:  map[string]string{},
		broadcast: broadcast,
	}
}

// CheckEvents runs the once-a-minute scheduler pass: close expired windows,
// open rule-triggered ones, and broadcast on any change.
func (s *EventScheduler) CheckEvents(now time.Time) {
	s.mu.Lock()
	changed := false

	for id, win := range s.windows {
		if now.After(win.end) {
			delete(s.windows, id)
			changed = true
			log.Printf("[events] deactivated %s", id)
		}
	}

	for _, ev := range s.catalog {
		if _, active := s.windows[ev.ID]; active {
			continue
		}
		key, end, open := eventRuleWindow(ev, now)
		if !open || s.lastKeys[ev.ID] == key {
			continue
		}
		s.windows[ev.ID] = eventWindow{start: now, end: end, key: key}
		s.lastKeys[ev.ID] = key
		changed = true
		log.Printf("[events] activated %s until %s", ev.ID, end.UTC().Format(time.RFC3339))
	}

	var active []ActiveEvent
	if changed {
		active = s.activeListLocked()
	}
	s.mu.Unlock()

	if changed {
		s.broadcast(active)
	}
}

// eventRuleWindow evaluates an event's calendar rule at time now. It returns
// the calendar key identifying the current window (used for dedup) and the
// window's end time.
func eventRuleWindow(ev GameEvent, now time.Time) (key string, end time.Time, open bool) {
	now = now.UTC()
	switch ev.Rule {
	case "biweekly_weekend":
		year, week := now.ISOWeek()
		if week%2 != 0 || !isWeekend(now.Weekday()) {
			return "", time.Time{}, false
		}
		return fmt.Sprintf("%d-w%02d", year, week), nextMonday(now), true

	case "daily_hour":
		if now.Hour() != ev.RuleHour {
			return "", time.Time{}, false
		}
		key := fmt.Sprintf("%s-h%02d", now.Format("2006-01-02"), ev.RuleHour)
		end := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC).Add(time.Hour)
		return key, end, true

	case "month_start_weekend":
		if now.Day() > 7 || !isWeekend(now.Weekday()) {
			return "", time.Time{}, false
		}
		return now.Format("2006-01"), nextMonday(now), true
	}
	return "", time.Time{}, false
}

func isWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}

// nextMonday is the upcoming Monday 00:00 UTC strictly after t.
func nextMonday(t time.Time) time.Time {
	t = t.UTC()
	days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	next := t.AddDate(0, 0, days)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
}

// ActivateManually opens a fixed-duration window for an event, bypassing its
// calendar rule. Used by the admin activation endpoint.
func (s *EventScheduler) ActivateManually(eventID string, duration time.Duration, now time.Time) bool {
	s.mu.Lock()
	var found *GameEvent
	for i := range s.catalog {
		if s.catalog[i].ID == eventID {
			found = &s.catalog[i]
			break
		}
	}
	if found == nil {
		s.mu.Unlock()
		return false
	}
	key := fmt.Sprintf("manual-%d", now.Unix())
	s.windows[eventID] = eventWindow{start: now, end: now.Add(duration), key: key}
	s.lastKeys[eventID] = key
	active := s.activeListLocked()
	s.mu.Unlock()

	log.Printf("[events] manually activated %s for %s", eventID, duration)
	s.broadcast(active)
	return true
}

// ActiveModifiers composes all open windows at time now. Missing or expired
// windows contribute neutral values; the result is always usable.
func (s *EventScheduler) ActiveModifiers(now time.Time) EventModifiers {
	s.mu.Lock()
	defer s.mu.Unlock()

	mods := neutralModifiers()
	mods.WindowKeys = map[string]string{}
	for _, ev := range s.catalog {
		win, active := s.windows[ev.ID]
		if !active || now.Before(win.start) || now.After(win.end) {
			continue
		}
		mods.IncomeMultiplier *= ev.IncomeMultiplier
		mods.CurrencyBonus += ev.CurrencyBonus
		mods.RewardMultiplier *= ev.RewardMultiplier
		if ev.RebirthDiscount > 0 {
			mods.RebirthDiscount *= ev.RebirthDiscount
		}
		mods.WindowKeys[ev.ID] = win.key
	}
	return mods
}

// ActiveEvents is the list broadcast to clients.
func (s *EventScheduler) ActiveEvents() []ActiveEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeListLocked()
}

func (s *EventScheduler) activeListLocked() []ActiveEvent {
	active := []ActiveEvent{}
	for _, ev := range s.catalog {
		win, ok := s.windows[ev.ID]
		if !ok {
			continue
		}
		active = append(active, ActiveEvent{
			ID:               ev.ID,
			Name:             ev.Name,
			Description:      ev.Description,
			Icon:             ev.Icon,
			StartTime:        win.start.Unix(),
			EndTime:          win.end.Unix(),
			IncomeMultiplier: ev.IncomeMultiplier,
			CurrencyBonus:    ev.CurrencyBonus,
			RewardMultiplier: ev.RewardMultiplier,
		})
	}
	return active
}
