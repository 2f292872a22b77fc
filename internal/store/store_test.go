package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ytget/tg-harvest/internal/model"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func testRecord(url string) model.LinkRecord {
	return model.LinkRecord{
		URL:     url,
		Type:    model.LinkTypeVideo,
		Caption: "caption for " + url,
		Date:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_InsertIfAbsent(t *testing.T) {
	m := testManager(t)
	s, err := m.Open("@mychannel")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !s.InsertIfAbsent(testRecord("https://youtu.be/a")) {
		t.Error("first insert should report a new record")
	}
	if s.InsertIfAbsent(testRecord("https://youtu.be/a")) {
		t.Error("re-insert of the same URL should be a no-op")
	}
	if !s.InsertIfAbsent(testRecord("https://youtu.be/b")) {
		t.Error("insert of a different URL should report a new record")
	}

	if s.Len() != 2 {
		t.Errorf("expected 2 records, got %d", s.Len())
	}

	recs := s.Records()
	if recs[0].Status != model.StatusPending {
		t.Errorf("new record should start pending, got %s", recs[0].Status)
	}
	if recs[0].CollectedAt.IsZero() {
		t.Error("new record should be stamped with a collection time")
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	m := testManager(t)
	s, _ := m.Open("c")
	s.InsertIfAbsent(testRecord("u1"))

	if err := s.UpdateStatus("u1", model.StatusFailed, "network timeout"); err != nil {
		t.Fatalf("pending -> failed: %v", err)
	}
	recs := s.Records()
	if recs[0].Status != model.StatusFailed || recs[0].LastError != "network timeout" {
		t.Errorf("failed record not recorded correctly: %+v", recs[0])
	}

	if err := s.UpdateStatus("u1", model.StatusCompleted, ""); err != nil {
		t.Fatalf("failed -> completed: %v", err)
	}
	recs = s.Records()
	if recs[0].LastError != "" {
		t.Error("completion should clear LastError")
	}

	err := s.UpdateStatus("u1", model.StatusFailed, "again")
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("completed -> failed should be rejected, got %v", err)
	}

	err = s.UpdateStatus("unknown", model.StatusCompleted, "")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("unknown URL should return ErrRecordNotFound, got %v", err)
	}
}

func TestStore_PersistRoundTrip(t *testing.T) {
	m := testManager(t)
	s, _ := m.Open("@mychannel")
	s.InsertIfAbsent(testRecord("https://youtu.be/a"))
	s.InsertIfAbsent(testRecord("https://drive.google.com/file/d/b"))
	s.UpdateStatus("https://youtu.be/a", model.StatusCompleted, "")

	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reloaded, err := m.Open("@mychannel")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	want := s.Records()
	got := reloaded.Records()
	if len(got) != len(want) {
		t.Fatalf("expected %d records after reload, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].URL != want[i].URL || got[i].Status != want[i].Status || got[i].Caption != want[i].Caption {
			t.Errorf("record %d mismatch after reload:\n got %+v\nwant %+v", i, got[i], want[i])
		}
	}

	// No temp files may survive a successful persist.
	entries, _ := os.ReadDir(filepath.Dir(s.Path()))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestStore_PersistKeepsOldFileUntilReplace(t *testing.T) {
	m := testManager(t)
	s, _ := m.Open("c")
	s.InsertIfAbsent(testRecord("u1"))
	if err := s.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	// Simulate a crash between temp write and rename: a stray temp file next
	// to the store must not affect loading the last persisted state.
	stray := s.Path() + ".tmp-deadbeef"
	if err := os.WriteFile(stray, []byte("{half writ"), 0o644); err != nil {
		t.Fatalf("write stray temp: %v", err)
	}

	reloaded, err := m.Open("c")
	if err != nil {
		t.Fatalf("reopen with stray temp present: %v", err)
	}
	if reloaded.Len() != 1 {
		t.Errorf("expected the persisted record to survive, got %d records", reloaded.Len())
	}
}

func TestManager_OpenCorruptStore(t *testing.T) {
	m := testManager(t)
	path := m.PathFor("broken")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s, err := m.Open("broken")
	if !errors.Is(err, ErrCorruptStore) {
		t.Fatalf("expected ErrCorruptStore, got %v", err)
	}
	if s == nil || s.Len() != 0 {
		t.Fatal("corrupt store should still yield an empty usable store")
	}

	// The bad file must be preserved under a backup name, not deleted.
	entries, _ := os.ReadDir(filepath.Dir(path))
	backup := false
	for _, e := range entries {
		if strings.Contains(e.Name(), ".corrupt-") {
			backup = true
		}
		if e.Name() == filepath.Base(path) {
			t.Error("corrupt file should have been moved aside")
		}
	}
	if !backup {
		t.Error("expected a .corrupt- backup file")
	}
}

func TestManager_OpenReadOnlyDoesNotTouchCorruptFile(t *testing.T) {
	m := testManager(t)
	path := m.PathFor("broken")
	os.WriteFile(path, []byte("[truncated"), 0o644)

	_, err := m.OpenReadOnly("broken")
	if !errors.Is(err, ErrCorruptStore) {
		t.Fatalf("expected ErrCorruptStore, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Error("read-only open must leave the corrupt file in place")
	}
}

func TestManager_Slug(t *testing.T) {
	m := testManager(t)
	tests := []struct {
		source   string
		expected string
	}{
		{"@golang_news", "golang_news"},
		{"-1001234567890", "-1001234567890"},
		{"weird name/with:stuff", "weird_name_with_stuff"},
		{"dots.are.fine", "dots.are.fine"},
	}

	for _, test := range tests {
		if got := m.Slug(test.source); got != test.expected {
			t.Errorf("Slug(%q) = %q, expected %q", test.source, got, test.expected)
		}
	}
}

func TestManager_Sources(t *testing.T) {
	m := testManager(t)

	slugs, err := m.Sources()
	if err != nil {
		t.Fatalf("Sources on empty dir: %v", err)
	}
	if len(slugs) != 0 {
		t.Fatalf("expected no sources, got %v", slugs)
	}

	for _, name := range []string{"beta", "alpha"} {
		s, _ := m.Open(name)
		s.InsertIfAbsent(testRecord("u-" + name))
		if err := s.Persist(); err != nil {
			t.Fatalf("Persist %s: %v", name, err)
		}
	}

	slugs, err = m.Sources()
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if len(slugs) != 2 || slugs[0] != "alpha" || slugs[1] != "beta" {
		t.Errorf("expected sorted [alpha beta], got %v", slugs)
	}
}

func TestManager_ChannelSnapshotRoundTrip(t *testing.T) {
	m := testManager(t)

	channels := []model.Channel{
		{Name: "Go News", ID: 100, Username: "golang_news", Kind: "channel"},
		{Name: "Team Chat", ID: 200, Kind: "group"},
	}
	if err := m.SaveChannels(channels); err != nil {
		t.Fatalf("SaveChannels: %v", err)
	}

	got, err := m.LoadChannels()
	if err != nil {
		t.Fatalf("LoadChannels: %v", err)
	}
	if len(got) != 2 || got[0] != channels[0] || got[1] != channels[1] {
		t.Errorf("snapshot round trip mismatch: %v", got)
	}
}

// TestStore_ConcurrentUpdates hammers one store from many goroutines and
// verifies no update is lost.
func TestStore_ConcurrentUpdates(t *testing.T) {
	m := testManager(t)
	s, _ := m.Open("c")

	const n = 64
	for i := 0; i < n; i++ {
		s.InsertIfAbsent(testRecord(fmt.Sprintf("url-%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			time.Sleep(time.Duration(i%5) * time.Millisecond)
			status := model.StatusCompleted
			if i%3 == 0 {
				status = model.StatusFailed
			}
			if err := s.UpdateStatus(fmt.Sprintf("url-%d", i), status, "boom"); err != nil {
				t.Errorf("UpdateStatus url-%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	for i, rec := range s.Records() {
		if rec.Status == model.StatusPending {
			t.Errorf("record %d still pending after concurrent updates", i)
		}
	}
}
