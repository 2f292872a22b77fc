package fetch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/tg-harvest/internal/model"
)

// DefaultVideoFormat caps downloads at 1080p
const DefaultVideoFormat = "best[height<=1080]"

// VideoFetcher downloads YouTube videos and playlists through yt-dlp
type VideoFetcher struct {
	format string
}

// NewVideoFetcher creates a video fetcher with the default format selector
func NewVideoFetcher() *VideoFetcher {
	return &VideoFetcher{format: DefaultVideoFormat}
}

// Fetch implements Fetcher. The output name is derived from the message
// caption with the video id appended, so distinct videos sharing a caption
// do not collide.
func (v *VideoFetcher) Fetch(ctx context.Context, rec model.LinkRecord, destDir string) error {
	name := SanitizeFilename(rec.Caption)
	if name == "" {
		name = "video"
	}

	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Format(v.format).
		Output(filepath.Join(destDir, name+"_%(id)s.%(ext)s"))

	if _, err := dl.Run(ctx, rec.URL); err != nil {
		return fmt.Errorf("yt-dlp: %w", err)
	}
	return nil
}
