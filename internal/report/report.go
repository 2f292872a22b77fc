// Package report provides read-only views across all source stores: the
// flat record listing and the status summary. It never mutates stores and
// never triggers corrupt-file recovery; a store that cannot be loaded is
// reported as inaccessible and skipped.
package report

import (
	"fmt"

	"github.com/ytget/tg-harvest/internal/model"
	"github.com/ytget/tg-harvest/internal/store"
)

// Entry is one record together with the source it belongs to
type Entry struct {
	Source string
	Record model.LinkRecord
}

// Listing is the cross-source record view
type Listing struct {
	Entries      []Entry
	Inaccessible []string
}

// Summary is the cross-source count view
type Summary struct {
	Total        int
	ByStatus     map[model.Status]int
	ByType       map[model.LinkType]int
	Sources      int
	Inaccessible []string
}

// List gathers records across all sources, ordered by source slug and then
// insertion order, optionally filtered by a case-insensitive caption
// keyword.
func List(manager *store.Manager, keyword string) (Listing, error) {
	var listing Listing

	slugs, err := manager.Sources()
	if err != nil {
		return listing, fmt.Errorf("enumerate sources: %w", err)
	}

	for _, slug := range slugs {
		st, err := manager.OpenReadOnly(slug)
		if err != nil {
			listing.Inaccessible = append(listing.Inaccessible, slug)
			continue
		}
		for _, rec := range st.Records() {
			if !rec.MatchesKeyword(keyword) {
				continue
			}
			listing.Entries = append(listing.Entries, Entry{Source: slug, Record: rec})
		}
	}
	return listing, nil
}

// StatusSummary counts records by status and by type across all sources
func StatusSummary(manager *store.Manager) (Summary, error) {
	summary := Summary{
		ByStatus: make(map[model.Status]int),
		ByType:   make(map[model.LinkType]int),
	}

	slugs, err := manager.Sources()
	if err != nil {
		return summary, fmt.Errorf("enumerate sources: %w", err)
	}

	for _, slug := range slugs {
		st, err := manager.OpenReadOnly(slug)
		if err != nil {
			summary.Inaccessible = append(summary.Inaccessible, slug)
			continue
		}
		summary.Sources++
		for _, rec := range st.Records() {
			summary.Total++
			summary.ByStatus[rec.Status]++
			summary.ByType[rec.Type]++
		}
	}
	return summary, nil
}
