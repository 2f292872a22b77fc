package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/tg-harvest/internal/model"
)

// File permissions for persisted stores
const (
	storeFilePermissions = 0o644
)

// ErrCorruptStore is returned when a persisted store cannot be parsed
var ErrCorruptStore = errors.New("corrupt store file")

// ErrRecordNotFound is returned when a status update targets an unknown URL
var ErrRecordNotFound = errors.New("record not found")

// Store is the collection of link records for one source. All mutation goes
// through the store's own lock: concurrent download workers updating records
// of the same source serialize here, workers on different sources never
// contend.
type Store struct {
	slug string
	path string

	mu      sync.Mutex
	records []*model.LinkRecord
	index   map[string]*model.LinkRecord
}

func newStore(slug, path string, records []*model.LinkRecord) *Store {
	s := &Store{
		slug:    slug,
		path:    path,
		records: records,
		index:   make(map[string]*model.LinkRecord, len(records)),
	}
	for _, rec := range records {
		s.index[rec.URL] = rec
	}
	return s
}

// Slug returns the sanitized source identifier this store belongs to
func (s *Store) Slug() string {
	return s.slug
}

// Path returns the file the store persists to
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of records in the store
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a snapshot copy of all records in insertion order
func (s *Store) Records() []model.LinkRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.LinkRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out
}

// InsertIfAbsent adds a record unless its URL is already present and
// reports whether a new record was added. New records start pending and are
// stamped with a collection time.
func (s *Store) InsertIfAbsent(rec model.LinkRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[rec.URL]; exists {
		return false
	}

	rec.Status = model.StatusPending
	rec.CollectedAt = time.Now()

	stored := rec
	s.records = append(s.records, &stored)
	s.index[stored.URL] = &stored
	return true
}

// UpdateStatus applies an allowed status transition to the record with the
// given URL. The reason is recorded as LastError on failure and cleared on
// completion. Returns ErrRecordNotFound or model.ErrInvalidTransition.
func (s *Store) UpdateStatus(url string, next model.Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.index[url]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, url)
	}

	updated, err := rec.Status.Transition(next)
	if err != nil {
		return fmt.Errorf("record %s: %w", url, err)
	}

	rec.Status = updated
	rec.DownloadedAt = time.Now()
	if next == model.StatusFailed {
		rec.LastError = reason
	} else {
		rec.LastError = ""
	}
	return nil
}

// Persist writes the full record set to the store file atomically: the
// records are written to a temporary file in the same directory which is
// then renamed over the store file, so a crash mid-write never leaves a
// half-written store behind.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store %s: %w", s.slug, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp := s.path + ".tmp-" + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, storeFilePermissions)
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp store file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// decodeRecords parses the on-disk form of a store
func decodeRecords(data []byte) ([]*model.LinkRecord, error) {
	var records []*model.LinkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	return records, nil
}
