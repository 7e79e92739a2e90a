package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/shopdesk/backend/internal/metrics"
)

// Entry is one persisted answer. Timestamp is unix seconds, matching the
// on-disk format {"<key>": {"response": ..., "timestamp": ...}}.
type Entry struct {
	Response  string  `json:"response"`
	Timestamp float64 `json:"timestamp"`
}

// Created returns the entry creation time.
func (e Entry) Created() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// KeyedEntry pairs an entry with its key.
type KeyedEntry struct {
	Key string
	Entry
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a size-bounded answer cache with lazy TTL expiry, persisted to a
// JSON file after every mutation. A Store is created once per process and
// shared by all turns.
type Store struct {
	path    string
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	log     zerolog.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

// Open loads the store from path. An unreadable or corrupt file yields an
// empty store; an empty path keeps the store in memory only.
func Open(path string, ttl time.Duration, maxSize int, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		path:    path,
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		log:     log.With().Str("component", "cache").Logger(),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	if path == "" {
		return s
	}

	entries, err := load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.log.Info().Str("path", path).Msg("cache file not found, starting empty")
	case err != nil:
		s.log.Warn().Err(err).Str("path", path).Msg("cache file unreadable, starting empty")
	default:
		s.entries = entries
		s.log.Info().Str("path", path).Int("entries", len(entries)).Msg("cache loaded")
	}
	return s
}

func load(path string) (map[string]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Entry)
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode cache file: %w", err)
	}
	return entries, nil
}

// Get returns the cached answer for key. Expired entries are removed and the
// removal is persisted.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return "", false
	}

	if !s.expired(entry) {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return entry.Response, true
	}

	s.mu.Lock()
	// A concurrent Set may have refreshed the entry in between.
	if current, still := s.entries[key]; still && current.Timestamp == entry.Timestamp {
		delete(s.entries, key)
		metrics.CacheEvictions.WithLabelValues("expired").Inc()
		s.persistLocked()
	}
	s.mu.Unlock()

	s.log.Debug().Str("key", key).Msg("cache entry expired")
	metrics.CacheLookups.WithLabelValues("expired").Inc()
	return "", false
}

// Set stores value under key, evicting the oldest entry when the store is
// full and key is new.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldestLocked()
	}

	s.entries[key] = Entry{Response: value, Timestamp: unixSeconds(s.now())}
	s.persistLocked()
}

// Delete removes key if present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	s.persistLocked()
	return true
}

// Purge removes every expired entry and returns how many were dropped.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues("expired").Add(float64(removed))
		s.persistLocked()
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a snapshot ordered from oldest to newest.
func (s *Store) Entries() []KeyedEntry {
	s.mu.RLock()
	out := make([]KeyedEntry, 0, len(s.entries))
	for key, entry := range s.entries {
		out = append(out, KeyedEntry{Key: key, Entry: entry})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp == out[j].Timestamp {
			return out[i].Key < out[j].Key
		}
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Expired reports whether the entry outlived the configured TTL.
func (s *Store) Expired(e Entry) bool {
	return s.expired(e)
}

// Close flushes the store to disk one last time.
func (s *Store) Close() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeFile()
}

func (s *Store) expired(e Entry) bool {
	if s.ttl <= 0 {
		return false
	}
	age := unixSeconds(s.now()) - e.Timestamp
	return age > s.ttl.Seconds()
}

func (s *Store) evictOldestLocked() {
	var (
		oldestKey string
		oldestTS  float64
		found     bool
	)
	for key, entry := range s.entries {
		if !found || entry.Timestamp < oldestTS {
			oldestKey, oldestTS, found = key, entry.Timestamp, true
		}
	}
	if !found {
		return
	}
	delete(s.entries, oldestKey)
	metrics.CacheEvictions.WithLabelValues("capacity").Inc()
	s.log.Debug().Str("key", oldestKey).Msg("evicted oldest cache entry")
}

// persistLocked writes the store; failures are logged and the in-memory state
// is kept. Callers hold s.mu for writing.
func (s *Store) persistLocked() {
	if s.path == "" {
		return
	}
	if err := s.writeFile(); err != nil {
		metrics.CacheWriteErrors.Inc()
		s.log.Warn().Err(err).Str("path", s.path).Msg("failed to persist cache, continuing in memory")
	}
}

// writeFile replaces the cache file atomically via a temp file and rename.
func (s *Store) writeFile() error {
	data, err := json.MarshalIndent(s.entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
