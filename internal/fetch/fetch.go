// Package fetch implements the per-type content fetchers and their registry.
// A fetcher gets a record and a destination directory and either produces a
// file or fails with a reason; everything else (selection, retry across
// runs, status bookkeeping) lives in the download coordinator.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ytget/tg-harvest/internal/model"
)

// MaxFilenameLength caps filenames derived from message captions
const MaxFilenameLength = 100

// ErrUnsupportedType is returned when no fetcher handles a record's type
var ErrUnsupportedType = errors.New("unsupported link type")

var (
	unsafeChars   = regexp.MustCompile(`[^\w\s-]`)
	collapseRuns  = regexp.MustCompile(`[-\s]+`)
	downloadsPerm = os.FileMode(0o755)
)

// Fetcher downloads the content behind one link into destDir
type Fetcher interface {
	Fetch(ctx context.Context, rec model.LinkRecord, destDir string) error
}

// Registry dispatches records to the fetcher for their type. Content is
// partitioned on disk by type: <base>/video, <base>/drive.
type Registry struct {
	baseDir  string
	fetchers map[model.LinkType]Fetcher
}

// NewRegistry creates a registry with the default video and drive fetchers
func NewRegistry(baseDir string) *Registry {
	return &Registry{
		baseDir: baseDir,
		fetchers: map[model.LinkType]Fetcher{
			model.LinkTypeVideo: NewVideoFetcher(),
			model.LinkTypeDrive: NewDriveFetcher(),
		},
	}
}

// Register replaces the fetcher for a type (used by tests and callers that
// stub out network access).
func (r *Registry) Register(t model.LinkType, f Fetcher) {
	r.fetchers[t] = f
}

// DestDir returns the destination directory for a link type
func (r *Registry) DestDir(t model.LinkType) string {
	return filepath.Join(r.baseDir, t.String())
}

// Fetch dispatches the record to its type's fetcher, creating the
// destination directory first.
func (r *Registry) Fetch(ctx context.Context, rec model.LinkRecord) error {
	f, ok := r.fetchers[rec.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, rec.Type)
	}

	destDir := r.DestDir(rec.Type)
	if err := os.MkdirAll(destDir, downloadsPerm); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	return f.Fetch(ctx, rec, destDir)
}

// SanitizeFilename derives a safe filename fragment from free text: special
// characters are dropped, whitespace and dash runs become single
// underscores, and the result is capped at MaxFilenameLength.
func SanitizeFilename(text string) string {
	safe := unsafeChars.ReplaceAllString(text, "")
	safe = collapseRuns.ReplaceAllString(safe, "_")
	runes := []rune(safe)
	if len(runes) > MaxFilenameLength {
		safe = string(runes[:MaxFilenameLength])
	}
	return safe
}
