package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	maxStoreAttempts = 5
	storeRetryDelay  = time.Second // attempt N waits N * storeRetryDelay
	saveInterval     = 30 * time.Second
)

// ErrSavePending is returned when a save is requested for a key that already
// has one in flight. Callers treat it as "try again later", not a failure.
var ErrSavePending = errors.New("save already pending")

// KVStore is the raw byte-level store underneath the gateway. The production
// implementation is a Postgres table; tests substitute an in-memory fake.
type KVStore interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

type postgresKV struct {
	db *sql.DB
}

func (s *postgresKV) Get(key string) ([]byte, bool, error) {
	var raw []byte
	err := s.db.QueryRow(`
		SELECT data
		FROM player_data
		WHERE player_key = $1
	`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *postgresKV) Put(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO player_data (player_key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (player_key)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, key, value)
	return err
}

// DataStore is the persistence gateway: versioned load/save with retries,
// migration-on-read, and at most one outstanding save per key.
type DataStore struct {
	kv         KVStore
	retryDelay time.Duration

	mu      sync.Mutex
	pending map[string]bool

	now func() time.Time
}

func NewDataStore(kv KVStore) *DataStore {
	return &DataStore{
		kv:         kv,
		retryDelay: storeRetryDelay,
		pending:    map[string]bool{},
		now:        time.Now,
	}
}

func playerKey(userID int64) string {
	return fmt.Sprintf("Player_%d", userID)
}

// withRetry runs fn up to maxStoreAttempts times with a linear backoff of
// attempt * retryDelay between failures.
func (ds *DataStore) withRetry(opName, key string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxStoreAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Printf("[datastore] %s succeeded on attempt %d for %s", opName, attempt, key)
			}
			return nil
		}
		lastErr = err
		log.Printf("[datastore] %s failed (attempt %d/%d) for %s: %v", opName, attempt, maxStoreAttempts, key, err)
		if attempt < maxStoreAttempts {
			time.Sleep(time.Duration(attempt) * ds.retryDelay)
		}
	}
	return fmt.Errorf("%s failed after %d attempts for %s: %w", opName, maxStoreAttempts, key, lastErr)
}

// LoadPlayerData fetches and migrates a player's record. Absent keys yield
// version-stamped defaults. The returned error is terminal (all retries
// exhausted); callers fall back to defaults rather than blocking the player.
func (ds *DataStore) LoadPlayerData(key string) (*PlayerSaveData, error) {
	var data *PlayerSaveData
	err := ds.withRetry("LoadPlayerData", key, func() error {
		raw, found, err := ds.kv.Get(key)
		if err != nil {
			return err
		}
		if !found {
			log.Printf("[datastore] new player detected: %s", key)
			data = DefaultPlayerData()
			return nil
		}
		data = MigrateSaveData(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SavePlayerData stamps lastSaveTime and version, then writes through the
// retry wrapper. A second save for the same key while one is outstanding is
// rejected with ErrSavePending and does not touch the store.
func (ds *DataStore) SavePlayerData(key string, data *PlayerSaveData) error {
	ds.mu.Lock()
	if ds.pending[key] {
		ds.mu.Unlock()
		log.Printf("[datastore] save already pending for %s, skipping", key)
		return ErrSavePending
	}
	ds.pending[key] = true
	ds.mu.Unlock()

	defer func() {
		ds.mu.Lock()
		delete(ds.pending, key)
		ds.mu.Unlock()
	}()

	data.LastSaveTime = ds.now().Unix()
	data.Version = DataVersion

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal save data for %s: %w", key, err)
	}

	return ds.withRetry("SavePlayerData", key, func() error {
		if err := ds.kv.Put(key, raw); err != nil {
			return err
		}
		log.Printf("[datastore] saved data for %s (currency: %.1f)", key, data.Currency)
		return nil
	})
}

func (ds *DataStore) HasPendingSave(key string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.pending[key]
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS player_data (
			player_key TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
			account_id BIGINT PRIMARY KEY,
			username TEXT NOT NULL,
			currency DOUBLE PRECISION NOT NULL,
			rebirths BIGINT NOT NULL,
			playtime BIGINT NOT NULL,
			inserted_seq BIGSERIAL,
			last_update TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}
