package report

import (
	"os"
	"testing"

	"github.com/ytget/tg-harvest/internal/model"
	"github.com/ytget/tg-harvest/internal/store"
)

func seedStore(t *testing.T, m *store.Manager, src string, recs ...model.LinkRecord) {
	t.Helper()
	st, err := m.Open(src)
	if err != nil {
		t.Fatalf("Open %s: %v", src, err)
	}
	for _, rec := range recs {
		st.InsertIfAbsent(rec)
	}
	if err := st.Persist(); err != nil {
		t.Fatalf("Persist %s: %v", src, err)
	}
}

func TestList_AcrossSources(t *testing.T) {
	m, _ := store.NewManager(t.TempDir())
	seedStore(t, m, "beta", model.LinkRecord{URL: "b1", Type: model.LinkTypeVideo, Caption: "lecture one"})
	seedStore(t, m, "alpha",
		model.LinkRecord{URL: "a1", Type: model.LinkTypeDrive, Caption: "homework slides"},
		model.LinkRecord{URL: "a2", Type: model.LinkTypeVideo, Caption: "lecture two"},
	)

	listing, err := List(m, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listing.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(listing.Entries))
	}
	// Sources come back sorted, records in insertion order within a source.
	if listing.Entries[0].Source != "alpha" || listing.Entries[0].Record.URL != "a1" {
		t.Errorf("unexpected first entry: %+v", listing.Entries[0])
	}
	if listing.Entries[2].Source != "beta" {
		t.Errorf("unexpected last entry: %+v", listing.Entries[2])
	}

	filtered, err := List(m, "LECTURE")
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(filtered.Entries) != 2 {
		t.Errorf("keyword filter should match 2 entries, got %d", len(filtered.Entries))
	}
}

func TestStatusSummary(t *testing.T) {
	m, _ := store.NewManager(t.TempDir())
	seedStore(t, m, "one",
		model.LinkRecord{URL: "u1", Type: model.LinkTypeVideo},
		model.LinkRecord{URL: "u2", Type: model.LinkTypeDrive},
	)
	seedStore(t, m, "two", model.LinkRecord{URL: "u3", Type: model.LinkTypeVideo})

	st, _ := m.Open("one")
	if err := st.UpdateStatus("u1", model.StatusCompleted, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := st.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	summary, err := StatusSummary(m)
	if err != nil {
		t.Fatalf("StatusSummary: %v", err)
	}
	if summary.Total != 3 || summary.Sources != 2 {
		t.Errorf("unexpected totals: %+v", summary)
	}
	if summary.ByStatus[model.StatusCompleted] != 1 || summary.ByStatus[model.StatusPending] != 2 {
		t.Errorf("unexpected status counts: %v", summary.ByStatus)
	}
	if summary.ByType[model.LinkTypeVideo] != 2 || summary.ByType[model.LinkTypeDrive] != 1 {
		t.Errorf("unexpected type counts: %v", summary.ByType)
	}
}

// TestAggregation_SkipsInaccessibleStores writes one good and one corrupt
// store and expects aggregation to continue past the corrupt one without
// modifying it.
func TestAggregation_SkipsInaccessibleStores(t *testing.T) {
	m, _ := store.NewManager(t.TempDir())
	seedStore(t, m, "good", model.LinkRecord{URL: "u1", Type: model.LinkTypeVideo})

	badPath := m.PathFor("bad")
	if err := os.WriteFile(badPath, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write corrupt store: %v", err)
	}

	listing, err := List(m, "")
	if err != nil {
		t.Fatalf("List should not abort on a corrupt store: %v", err)
	}
	if len(listing.Entries) != 1 {
		t.Errorf("expected the good store's record, got %d entries", len(listing.Entries))
	}
	if len(listing.Inaccessible) != 1 || listing.Inaccessible[0] != "bad" {
		t.Errorf("corrupt store not reported: %v", listing.Inaccessible)
	}

	// Read-only aggregation must leave the corrupt file alone.
	if _, err := os.Stat(badPath); err != nil {
		t.Error("corrupt store file should remain in place after aggregation")
	}

	summary, err := StatusSummary(m)
	if err != nil {
		t.Fatalf("StatusSummary: %v", err)
	}
	if summary.Total != 1 || len(summary.Inaccessible) != 1 {
		t.Errorf("summary should skip the corrupt store: %+v", summary)
	}
}
