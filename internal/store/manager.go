package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/tg-harvest/internal/model"
)

// Data directory layout
const (
	channelsDirName  = "channels"
	snapshotFileName = "channel_info.json"
	storeFileSuffix  = ".json"
)

// slugPattern matches characters replaced when deriving a file-safe slug
// from a channel username or numeric id.
var slugPattern = regexp.MustCompile(`[^\w.-]`)

// Manager owns the harvester data directory: one store file per source under
// the channels directory, plus the channel listing snapshot.
type Manager struct {
	dataDir      string
	channelsDir  string
	snapshotPath string
}

// NewManager creates a manager rooted at dataDir, creating the directory
// layout if needed.
func NewManager(dataDir string) (*Manager, error) {
	channelsDir := filepath.Join(dataDir, channelsDirName)
	if err := os.MkdirAll(channelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &Manager{
		dataDir:      dataDir,
		channelsDir:  channelsDir,
		snapshotPath: filepath.Join(dataDir, snapshotFileName),
	}, nil
}

// Slug converts a source identifier (username or numeric id) to a file-safe
// string. A leading @ is stripped, anything outside [A-Za-z0-9_.-] becomes
// an underscore.
func (m *Manager) Slug(source string) string {
	return slugPattern.ReplaceAllString(strings.TrimPrefix(source, "@"), "_")
}

// PathFor returns the store file path for a source
func (m *Manager) PathFor(source string) string {
	return filepath.Join(m.channelsDir, m.Slug(source)+storeFileSuffix)
}

// Open loads the store for a source, or initializes an empty one if no file
// exists yet. A store file that cannot be parsed is renamed aside (so no
// data is silently destroyed) and an empty store is returned together with
// an error wrapping ErrCorruptStore; the caller's policy is to warn and
// proceed.
func (m *Manager) Open(source string) (*Store, error) {
	slug := m.Slug(source)
	path := m.PathFor(source)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newStore(slug, path, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", slug, err)
	}

	records, decodeErr := decodeRecords(data)
	if decodeErr != nil {
		backup := fmt.Sprintf("%s.corrupt-%s", path, time.Now().Format("20060102-150405"))
		if renameErr := os.Rename(path, backup); renameErr != nil {
			return nil, fmt.Errorf("back up corrupt store %s: %w", slug, renameErr)
		}
		return newStore(slug, path, nil), fmt.Errorf("store %s moved to %s: %w", slug, backup, decodeErr)
	}

	return newStore(slug, path, records), nil
}

// OpenReadOnly loads the store for a slug without any recovery side effects.
// Used by aggregation paths that must never modify files on disk; a corrupt
// file surfaces as an error wrapping ErrCorruptStore.
func (m *Manager) OpenReadOnly(slug string) (*Store, error) {
	path := filepath.Join(m.channelsDir, slug+storeFileSuffix)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newStore(slug, path, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", slug, err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", slug, err)
	}
	return newStore(slug, path, records), nil
}

// Sources enumerates the slugs of all persisted stores, sorted
func (m *Manager) Sources() ([]string, error) {
	entries, err := os.ReadDir(m.channelsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	var slugs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, storeFileSuffix) {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(name, storeFileSuffix))
	}
	sort.Strings(slugs)
	return slugs, nil
}

// SaveChannels persists the channel listing snapshot, using the same
// write-then-rename discipline as the stores.
func (m *Manager) SaveChannels(channels []model.Channel) error {
	data, err := json.MarshalIndent(channels, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal channel snapshot: %w", err)
	}

	tmp := m.snapshotPath + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write channel snapshot: %w", err)
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace channel snapshot: %w", err)
	}
	return nil
}

// LoadChannels reads the channel listing snapshot, if present
func (m *Manager) LoadChannels() ([]model.Channel, error) {
	data, err := os.ReadFile(m.snapshotPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read channel snapshot: %w", err)
	}

	var channels []model.Channel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("parse channel snapshot: %w", err)
	}
	return channels, nil
}

// SnapshotPath returns the channel snapshot file location
func (m *Manager) SnapshotPath() string {
	return m.snapshotPath
}
