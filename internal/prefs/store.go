package prefs

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/FutilityDesigns/Glyph-Reader/internal/gesture"
	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
)

// Store is the single owner of persistent key/value preference data. Reads
// come from an in-memory cache loaded at startup; writes go through the
// cache and flush to sqlite. Type mismatches at read or write log and fall
// back to the caller-supplied default.
type Store struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[Key]string
}

// Open opens (creating if needed) the preference database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key       TEXT PRIMARY KEY,
			value     TEXT,
			updated   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	s := &Store{db: db, cache: make(map[Key]string)}
	if err := s.loadCache(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) loadCache() error {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		s.cache[Key(k)] = v
	}
	return rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) raw(key Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[key]
	return v, ok
}

func (s *Store) flush(key Key, value string) error {
	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated = CURRENT_TIMESTAMP
	`, string(key), value)
	if err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func checkType(key Key, want Type, op string) bool {
	spec, ok := SpecFor(key)
	if !ok {
		monitoring.Logf("prefs: %s unknown key %q", op, key)
		return false
	}
	if spec.Type != want {
		monitoring.Logf("prefs: %s wrong type for key %q", op, key)
		return false
	}
	return true
}

// GetBool returns the stored value or def on any miss, type mismatch, or
// parse failure.
func (s *Store) GetBool(key Key, def bool) bool {
	if !checkType(key, TypeBool, "GetBool") {
		return def
	}
	raw, ok := s.raw(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		monitoring.Debugf("prefs: bad bool for %q: %q", key, raw)
		return def
	}
	return v
}

// GetInt returns the stored value or def.
func (s *Store) GetInt(key Key, def int) int {
	if !checkType(key, TypeInt, "GetInt") {
		return def
	}
	raw, ok := s.raw(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		monitoring.Debugf("prefs: bad int for %q: %q", key, raw)
		return def
	}
	return v
}

// GetString returns the stored value or def.
func (s *Store) GetString(key Key, def string) string {
	if !checkType(key, TypeString, "GetString") {
		return def
	}
	raw, ok := s.raw(key)
	if !ok {
		return def
	}
	return raw
}

// SetBool validates the key type and writes through to storage.
func (s *Store) SetBool(key Key, v bool) error {
	if !checkType(key, TypeBool, "SetBool") {
		return fmt.Errorf("wrong type for key %q", key)
	}
	return s.flush(key, strconv.FormatBool(v))
}

// SetInt validates the key type and writes through to storage.
func (s *Store) SetInt(key Key, v int) error {
	if !checkType(key, TypeInt, "SetInt") {
		return fmt.Errorf("wrong type for key %q", key)
	}
	return s.flush(key, strconv.Itoa(v))
}

// SetString validates the key type and writes through to storage.
func (s *Store) SetString(key Key, v string) error {
	if !checkType(key, TypeString, "SetString") {
		return fmt.Errorf("wrong type for key %q", key)
	}
	return s.flush(key, v)
}

// Int returns the value for an int key using its declared default.
func (s *Store) Int(key Key) int {
	spec, _ := SpecFor(key)
	return s.GetInt(key, spec.DefaultInt)
}

// Str returns the value for a string key using its declared default.
func (s *Store) Str(key Key) string {
	spec, _ := SpecFor(key)
	return s.GetString(key, spec.DefaultString)
}

// Bool returns the value for a bool key using its declared default.
func (s *Store) Bool(key Key) bool {
	spec, _ := SpecFor(key)
	return s.GetBool(key, spec.DefaultBool)
}

// Tuning assembles the state machine thresholds from current values.
func (s *Store) Tuning() gesture.Tuning {
	return gesture.Tuning{
		MovementThreshold:  s.Int(MovementThreshold),
		StillnessThreshold: s.Int(StillnessThreshold),
		ReadyStillnessTime: time.Duration(s.Int(ReadyStillnessTime)) * time.Millisecond,
		GestureTimeout:     time.Duration(s.Int(GestureTimeout)) * time.Millisecond,
		IRLossTimeout:      time.Duration(s.Int(IRLossTimeout)) * time.Millisecond,
	}
}
