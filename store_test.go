package main

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV is an in-memory KVStore with per-call failure injection.
type fakeKV struct {
	mu       sync.Mutex
	data     map[string][]byte
	getFails int
	putFails int
	getCalls int
	putCalls int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}}
}

func (f *fakeKV) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getFails > 0 {
		f.getFails--
		return nil, false, errors.New("injected get failure")
	}
	raw, ok := f.data[key]
	return raw, ok, nil
}

func (f *fakeKV) Put(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if f.putFails > 0 {
		f.putFails--
		return errors.New("injected put failure")
	}
	f.data[key] = value
	return nil
}

func newTestStore(kv KVStore) *DataStore {
	ds := NewDataStore(kv)
	ds.retryDelay = 0
	ds.now = func() time.Time { return testTime() }
	return ds
}

func TestDataStore_LoadAbsentKeyYieldsDefaults(t *testing.T) {
	ds := newTestStore(newFakeKV())

	data, err := ds.LoadPlayerData(playerKey(42))
	require.NoError(t, err)
	assert.Equal(t, DefaultPlayerData(), data)
}

func TestDataStore_SaveThenLoadRoundTrips(t *testing.T) {
	kv := newFakeKV()
	ds := newTestStore(kv)
	key := playerKey(42)

	data := DefaultPlayerData()
	data.Currency = 999.5
	data.RebirthCount = 2
	require.NoError(t, ds.SavePlayerData(key, data))

	// Save stamps the version and last-save time.
	assert.Equal(t, DataVersion, data.Version)
	assert.Equal(t, testTime().Unix(), data.LastSaveTime)

	loaded, err := ds.LoadPlayerData(key)
	require.NoError(t, err)
	assert.Equal(t, 999.5, loaded.Currency)
	assert.Equal(t, 2, loaded.RebirthCount)
	assert.Equal(t, testTime().Unix(), loaded.LastSaveTime)
}

func TestDataStore_LoadRetriesTransientFailures(t *testing.T) {
	kv := newFakeKV()
	kv.getFails = 2
	ds := newTestStore(kv)

	data, err := ds.LoadPlayerData(playerKey(1))
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Equal(t, 3, kv.getCalls, "two failures then one success")
}

func TestDataStore_LoadExhaustsRetries(t *testing.T) {
	kv := newFakeKV()
	kv.getFails = maxStoreAttempts
	ds := newTestStore(kv)

	_, err := ds.LoadPlayerData(playerKey(1))
	assert.Error(t, err)
	assert.Equal(t, maxStoreAttempts, kv.getCalls)
}

func TestDataStore_SaveRetriesThenFails(t *testing.T) {
	kv := newFakeKV()
	kv.putFails = maxStoreAttempts
	ds := newTestStore(kv)

	err := ds.SavePlayerData(playerKey(1), DefaultPlayerData())
	assert.Error(t, err)
	assert.Equal(t, maxStoreAttempts, kv.putCalls)

	// The pending flag is released even on terminal failure.
	assert.False(t, ds.HasPendingSave(playerKey(1)))
}

// blockingKV parks Put until released so a save can be held in flight.
type blockingKV struct {
	*fakeKV
	enter   chan struct{}
	release chan struct{}
}

func (b *blockingKV) Put(key string, value []byte) error {
	b.enter <- struct{}{}
	<-b.release
	return b.fakeKV.Put(key, value)
}

func TestDataStore_SecondSaveWhilePendingIsRejected(t *testing.T) {
	kv := &blockingKV{fakeKV: newFakeKV(), enter: make(chan struct{}), release: make(chan struct{})}
	ds := newTestStore(kv)
	key := playerKey(7)

	done := make(chan error, 1)
	go func() { done <- ds.SavePlayerData(key, DefaultPlayerData()) }()

	<-kv.enter // first save is now inside Put
	assert.True(t, ds.HasPendingSave(key))
	assert.ErrorIs(t, ds.SavePlayerData(key, DefaultPlayerData()), ErrSavePending)

	close(kv.release)
	require.NoError(t, <-done)
	assert.False(t, ds.HasPendingSave(key))
	assert.Equal(t, 1, kv.putCalls, "the rejected save never reached the store")
}

func TestDataStore_StoredPayloadIsVersionedJSON(t *testing.T) {
	kv := newFakeKV()
	ds := newTestStore(kv)
	key := playerKey(9)

	require.NoError(t, ds.SavePlayerData(key, DefaultPlayerData()))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(kv.data[key], &payload))
	assert.Equal(t, float64(DataVersion), payload["version"])
}
