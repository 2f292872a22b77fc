package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ytget/tg-harvest/internal/model"
)

// Drive download endpoint
const driveDownloadURL = "https://drive.google.com/uc?export=download"

// confirmToken appears in the virus-scan interstitial page for large files
var confirmToken = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)

// DriveFetcher downloads Google Drive files over plain HTTP, including the
// confirm-token dance Drive requires for files too large to virus-scan.
type DriveFetcher struct {
	client *http.Client
}

// NewDriveFetcher creates a drive fetcher with its own cookie-less client
func NewDriveFetcher() *DriveFetcher {
	return &DriveFetcher{
		client: &http.Client{Timeout: 0}, // per-attempt deadline comes from ctx
	}
}

// Fetch implements Fetcher
func (d *DriveFetcher) Fetch(ctx context.Context, rec model.LinkRecord, destDir string) error {
	fileID, err := ExtractDriveID(rec.URL)
	if err != nil {
		return err
	}

	name := SanitizeFilename(rec.Caption)
	if name == "" {
		name = "drive_" + fileID
	}
	dest := filepath.Join(destDir, name)

	resp, err := d.get(ctx, driveDownloadURL+"&id="+url.QueryEscape(fileID))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Large files come back as an HTML confirmation page instead of content.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return fmt.Errorf("read confirm page: %w", readErr)
		}
		m := confirmToken.FindSubmatch(body)
		if m == nil {
			return fmt.Errorf("drive file %s is not downloadable (no confirm token)", fileID)
		}
		resp.Body.Close()

		resp, err = d.get(ctx, driveDownloadURL+"&id="+url.QueryEscape(fileID)+"&confirm="+string(m[1]))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
	}

	return writeFile(dest, resp.Body)
}

func (d *DriveFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("drive returned %s", resp.Status)
	}
	return resp, nil
}

// writeFile streams body to dest via a .part file renamed on success
func writeFile(dest string, body io.Reader) error {
	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create %s: %w", part, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(part)
		return fmt.Errorf("download: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return err
	}
	return os.Rename(part, dest)
}

// ExtractDriveID pulls the file or folder id out of the three supported
// Drive URL shapes.
func ExtractDriveID(rawURL string) (string, error) {
	for _, marker := range []string{"/file/d/", "/folders/"} {
		if idx := strings.Index(rawURL, marker); idx >= 0 {
			rest := rawURL[idx+len(marker):]
			if end := strings.IndexAny(rest, "/?#"); end >= 0 {
				rest = rest[:end]
			}
			if rest != "" {
				return rest, nil
			}
		}
	}

	if idx := strings.Index(rawURL, "?"); idx >= 0 {
		if values, err := url.ParseQuery(rawURL[idx+1:]); err == nil {
			if id := values.Get("id"); id != "" {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("could not extract file id from %s", rawURL)
}
