package services

import (
	"database/sql"
	"encoding/json"
	"errors"

	_ "github.com/glebarez/go-sqlite"
)

// Cache is the durable, synchronous key-value mirror on the local instance.
// It is the offline-first fallback when the record store is unreachable and
// is never authoritative across instances.
type Cache struct {
	db *sql.DB
}

// Well-known cache keys.
const (
	KeyLastActiveDate = "last_active_date"
	KeyDailyStats     = "daily_stats_"   // + userID
	KeyHistory        = "history_"       // + userID
	KeyWeeklyStates   = "weekly_states_" // + userID
)

func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the raw value for key, or ok=false when absent.
func (c *Cache) Get(key string) (string, bool) {
	var value string
	err := c.db.QueryRow(`SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		return "", false
	}
	return value, true
}

// Set stores the raw value for key, replacing any previous value.
func (c *Cache) Set(key, value string) error {
	_, err := c.db.Exec(
		`INSERT INTO cache_entries (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

// GetJSON decodes the value for key into out. A missing key or a malformed
// value reports ok=false and leaves out at its zero value; corruption never
// surfaces as an error to callers.
func (c *Cache) GetJSON(key string, out interface{}) bool {
	raw, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key.
func (c *Cache) SetJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, string(raw))
}
