package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const leaderboardTopN = 10

// LeaderboardSnapshot is the per-player summary record kept separately from
// the save payload so leaderboards can be answered without a "list all keys"
// query against the main store.
type LeaderboardSnapshot struct {
	AccountID  int64     `json:"accountId"`
	Username   string    `json:"username"`
	Currency   float64   `json:"currency"`
	Rebirths   int       `json:"rebirths"`
	Playtime   int64     `json:"playtime"` // lifetime minutes
	LastUpdate time.Time `json:"lastUpdate"`
}

// SnapshotStore persists and queries leaderboard snapshots. The production
// implementation is Postgres; tests substitute an in-memory fake.
type SnapshotStore interface {
	Upsert(snap LeaderboardSnapshot) error
	Top(kind string, n int) ([]LeaderboardSnapshot, error)
	ByAccounts(ids []int64) ([]LeaderboardSnapshot, error)
}

var leaderboardColumns = map[string]string{
	"currency": "currency",
	"rebirths": "rebirths",
	"playtime": "playtime",
}

func validLeaderboardKind(kind string) bool {
	_, ok := leaderboardColumns[kind]
	return ok
}

type postgresSnapshots struct {
	db *sql.DB
}

func (s *postgresSnapshots) Upsert(snap LeaderboardSnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO leaderboard_snapshots (account_id, username, currency, rebirths, playtime, last_update)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (account_id)
		DO UPDATE SET
			username = EXCLUDED.username,
			currency = EXCLUDED.currency,
			rebirths = EXCLUDED.rebirths,
			playtime = EXCLUDED.playtime,
			last_update = NOW()
	`, snap.AccountID, snap.Username, snap.Currency, snap.Rebirths, snap.Playtime)
	return err
}

func (s *postgresSnapshots) Top(kind string, n int) ([]LeaderboardSnapshot, error) {
	column, ok := leaderboardColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown leaderboard type %q", kind)
	}

	// Ties break by insertion order (inserted_seq).
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT account_id, username, currency, rebirths, playtime, last_update
		FROM leaderboard_snapshots
		ORDER BY %s DESC, inserted_seq ASC
		LIMIT $1
	`, column), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func (s *postgresSnapshots) ByAccounts(ids []int64) ([]LeaderboardSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT account_id, username, currency, rebirths, playtime, last_update
		FROM leaderboard_snapshots
		WHERE account_id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]LeaderboardSnapshot, error) {
	var snaps []LeaderboardSnapshot
	for rows.Next() {
		var snap LeaderboardSnapshot
		if err := rows.Scan(&snap.AccountID, &snap.Username, &snap.Currency, &snap.Rebirths, &snap.Playtime, &snap.LastUpdate); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// LeaderboardEntry is the ranked view sent to clients.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	UserID   int64   `json:"userId"`
	Username string  `json:"username"`
	Value    float64 `json:"value"`
}

func rankSnapshots(kind string, snaps []LeaderboardSnapshot) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(snaps))
	for i, snap := range snaps {
		value := snap.Currency
		switch kind {
		case "rebirths":
			value = float64(snap.Rebirths)
		case "playtime":
			value = float64(snap.Playtime)
		}
		entries = append(entries, LeaderboardEntry{
			Rank:     i + 1,
			UserID:   snap.AccountID,
			Username: snap.Username,
			Value:    value,
		})
	}
	return entries
}
