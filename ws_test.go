package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidUsername(t *testing.T) {
	valid := []string{"alice", "Bob_42", "abc", "x_y_z", "Ämelie"}
	for _, name := range valid {
		if !isValidUsername(name) {
			t.Fatalf("%q should be valid", name)
		}
	}

	invalid := []string{
		"",
		"ab",              // too short
		"_alice",          // leading underscore
		"alice_",          // trailing underscore
		"has space",
		"semi;colon",
		"player-one",
		strings.Repeat("a", maxUsernameLen+1),
	}
	for _, name := range invalid {
		if isValidUsername(name) {
			t.Fatalf("%q should be invalid", name)
		}
	}
}

func TestPlayerDataView(t *testing.T) {
	d := DefaultPlayerData()
	d.UpgradeLevels["income_boost_1"] = 2
	d.HasVIP = true
	d.LoginStreak = 3
	d.UnlockedAchievements = []string{"first_dollar"}

	view := playerDataView(d)
	assert.Equal(t, d.UpgradeLevels, view.UpgradeLevels)
	assert.Equal(t, d.UnlockedZones, view.UnlockedZones)
	assert.Equal(t, starterZoneID, view.SelectedZone)
	assert.True(t, view.HasVIP)
	assert.Equal(t, 3, view.LoginStreak)
	assert.Equal(t, []string{"first_dollar"}, view.UnlockedAchievements)
}

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readUntil drains frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", eventType, err)
		}
		if env.Type == eventType {
			return env.Data
		}
	}
}

func TestWebSocketSession_Lifecycle(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	srv := httptest.NewServer(wsHandler(svc))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	// Bad params never reach the session layer.
	_, _, err := websocket.DefaultDialer.Dial(wsURL+"?userId=abc&username=alice", nil)
	assert.Error(t, err)
	_, _, err = websocket.DefaultDialer.Dial(wsURL+"?userId=42&username=a!", nil)
	assert.Error(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?userId=42&username=alice", nil)
	require.NoError(t, err)

	// The join sync arrives unprompted.
	var cu CurrencyUpdate
	require.NoError(t, json.Unmarshal(readUntil(t, conn, CurrencyUpdateEvent), &cu))
	assert.Equal(t, 0.0, cu.Balance)

	_, found := svc.Player(42)
	assert.True(t, found)

	// A request round-trips through the dispatcher.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "rebirth"}))
	var resp Response
	require.NoError(t, json.Unmarshal(readUntil(t, conn, "rebirth_response"), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "more currency to rebirth")

	// Closing the socket tears the session down: the connection close (the
	// same path a write failure takes) unblocks the read loop and the leave
	// removes the player.
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		_, still := svc.Player(42)
		return !still
	}, 2*time.Second, 10*time.Millisecond)
}
