package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

/* ======================
   Wire protocol
   ====================== */

// Outbound event types (server -> client).
const (
	CurrencyUpdateEvent            = "currency_update"
	RebirthCountUpdateEvent        = "rebirth_count_update"
	PlayerDataUpdateEvent          = "player_data_update"
	AchievementUnlockedEvent       = "achievement_unlocked"
	AchievementsUpdateEvent        = "achievements_update"
	AchievementProgressUpdateEvent = "achievement_progress_update"
	EventUpdateEvent               = "event_update"
	LeaderboardResponseEvent       = "leaderboard_response"
	FriendsResponseEvent           = "friends_response"
)

type CurrencyUpdate struct {
	Balance float64 `json:"balance"`
}

type RebirthCountUpdate struct {
	Count int `json:"count"`
}

type PlayerDataUpdate struct {
	UpgradeLevels        map[string]int   `json:"upgradeLevels"`
	UnlockedZones        []string         `json:"unlockedZones"`
	SelectedZone         string           `json:"selectedZone"`
	HasVIP               bool             `json:"hasVIP"`
	HasDoubleCash        bool             `json:"hasDoubleCash"`
	HasAutoCollect       bool             `json:"hasAutoCollect"`
	ActiveBoosts         map[string]int64 `json:"activeBoosts"`
	IdleStreak           int              `json:"idleStreak"`
	TotalSessionTime     int64            `json:"totalSessionTime"`
	LoginStreak          int              `json:"loginStreak"`
	UnlockedAchievements []string         `json:"unlockedAchievements"`
}

func playerDataView(d *PlayerSaveData) PlayerDataUpdate {
	return PlayerDataUpdate{
		UpgradeLevels:        d.UpgradeLevels,
		UnlockedZones:        d.UnlockedZones,
		SelectedZone:         d.SelectedZone,
		HasVIP:               d.HasVIP,
		HasDoubleCash:        d.HasDoubleCash,
		HasAutoCollect:       d.HasAutoCollect,
		ActiveBoosts:         d.ActiveBoosts,
		IdleStreak:           d.IdleStreak,
		TotalSessionTime:     d.TotalSessionTime,
		LoginStreak:          d.LoginStreak,
		UnlockedAchievements: d.UnlockedAchievements,
	}
}

type AchievementUnlocked struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Reward      int64  `json:"reward"`
}

type AchievementsUpdate struct {
	UnlockedIDs []string `json:"unlockedIds"`
}

type AchievementProgressUpdate struct {
	Progress map[string]int `json:"progress"`
}

type LeaderboardResponse struct {
	Response
	Type    string             `json:"type"`
	Entries []LeaderboardEntry `json:"entries"`
}

type FriendsResponse struct {
	Response
	Friends []LeaderboardSnapshot `json:"friends"`
}

// requestEnvelope is the inbound client -> server frame.
type requestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type idRequest struct {
	UpgradeID string `json:"upgradeId,omitempty"`
	ZoneID    string `json:"zoneId,omitempty"`
}

type leaderboardRequest struct {
	LeaderboardType string `json:"leaderboardType"`
}

type settingsUpdateRequest struct {
	Settings map[string]string `json:"settings"`
}

/* ======================
   Session
   ====================== */

const sessionSendBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outboundEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Session is one player's WebSocket connection: a read loop dispatching
// inbound requests and a single writer goroutine draining the outbound
// queue. A full queue drops the event with a warning rather than blocking
// the sender.
type Session struct {
	id     string
	userID int64
	conn   *websocket.Conn
	out    chan outboundEvent
	done   chan struct{}
}

func newSession(userID int64, conn *websocket.Conn) *Session {
	return &Session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		out:    make(chan outboundEvent, sessionSendBuffer),
		done:   make(chan struct{}),
	}
}

func (sess *Session) Send(eventType string, payload interface{}) {
	select {
	case sess.out <- outboundEvent{Type: eventType, Data: payload}:
	case <-sess.done:
	default:
		log.Printf("[ws] session %s outbound queue full, dropping %s", sess.id, eventType)
	}
}

func (sess *Session) writeLoop() {
	for {
		select {
		case ev := <-sess.out:
			if err := sess.conn.WriteJSON(ev); err != nil {
				// Closing here unblocks the read loop, which otherwise
				// lingers on a half-dead socket.
				_ = sess.conn.Close()
				return
			}
		case <-sess.done:
			return
		}
	}
}

func (sess *Session) readLoop(svc *EconomyService, p *PlayerState) {
	defer close(sess.done)

	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}

		var req requestEnvelope
		if err := json.Unmarshal(raw, &req); err != nil {
			log.Printf("[ws] session %s sent malformed frame: %v", sess.id, err)
			continue
		}

		p.mu.Lock()
		p.lastActivity = svc.now()
		p.mu.Unlock()

		dispatchRequest(svc, p, sess, req)
	}
}

func dispatchRequest(svc *EconomyService, p *PlayerState, sess *Session, req requestEnvelope) {
	switch req.Type {
	case "rebirth":
		sess.Send("rebirth_response", svc.HandleRebirth(p))

	case "upgrade_purchase":
		var body idRequest
		if err := json.Unmarshal(req.Data, &body); err != nil || body.UpgradeID == "" {
			log.Printf("[ws] session %s: bad upgrade_purchase payload", sess.id)
			return
		}
		sess.Send("upgrade_purchase_response", svc.HandleUpgradePurchase(p, body.UpgradeID))

	case "zone_unlock":
		var body idRequest
		if err := json.Unmarshal(req.Data, &body); err != nil || body.ZoneID == "" {
			log.Printf("[ws] session %s: bad zone_unlock payload", sess.id)
			return
		}
		sess.Send("zone_unlock_response", svc.HandleZoneUnlock(p, body.ZoneID))

	case "zone_select":
		var body idRequest
		if err := json.Unmarshal(req.Data, &body); err != nil || body.ZoneID == "" {
			log.Printf("[ws] session %s: bad zone_select payload", sess.id)
			return
		}
		sess.Send("zone_select_response", svc.HandleZoneSelect(p, body.ZoneID))

	case "afk_claim":
		sess.Send("afk_claim_response", svc.HandleAFKClaim(p))

	case "daily_claim":
		sess.Send("daily_claim_response", svc.HandleDailyClaim(p))

	case "leaderboard":
		var body leaderboardRequest
		if err := json.Unmarshal(req.Data, &body); err != nil {
			log.Printf("[ws] session %s: bad leaderboard payload", sess.id)
			return
		}
		resp, entries := svc.HandleLeaderboardQuery(p, body.LeaderboardType)
		sess.Send(LeaderboardResponseEvent, LeaderboardResponse{Response: resp, Type: body.LeaderboardType, Entries: entries})

	case "settings_update":
		var body settingsUpdateRequest
		if err := json.Unmarshal(req.Data, &body); err != nil || body.Settings == nil {
			log.Printf("[ws] session %s: bad settings_update payload", sess.id)
			return
		}
		sess.Send("settings_update_response", svc.HandleSettingsUpdate(p, body.Settings))

	case "friends":
		resp, friends := svc.HandleFriendsQuery(p)
		sess.Send(FriendsResponseEvent, FriendsResponse{Response: resp, Friends: friends})

	default:
		log.Printf("[ws] session %s sent unknown request type %q", sess.id, req.Type)
	}
}

// wsHandler is the session-lifecycle boundary: a successful upgrade is the
// join signal, the connection closing is the leave signal.
func wsHandler(svc *EconomyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
		if err != nil || userID <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		username := r.URL.Query().Get("username")
		if !isValidUsername(username) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("[ws] upgrade failed:", err)
			return
		}

		sess := newSession(userID, conn)
		p := svc.OnPlayerJoin(userID, username, sess)

		go sess.writeLoop()
		log.Printf("[ws] session %s opened for %s (user %d)", sess.id, username, userID)

		sess.readLoop(svc, p)

		svc.OnPlayerLeave(p)
		_ = conn.Close()
		log.Printf("[ws] session %s closed for %s", sess.id, username)
	}
}
