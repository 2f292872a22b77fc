package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ytget/tg-harvest/internal/model"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Go Concurrency: part 3!", "Go_Concurrency_part_3"},
		{"a  b\t c", "a_b_c"},
		{"---dashes---", "_dashes_"},
		{"", ""},
	}

	for _, test := range tests {
		if got := SanitizeFilename(test.input); got != test.expected {
			t.Errorf("SanitizeFilename(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}

	long := strings.Repeat("x", MaxFilenameLength*2)
	if got := SanitizeFilename(long); len(got) != MaxFilenameLength {
		t.Errorf("long name should be capped at %d, got %d", MaxFilenameLength, len(got))
	}
}

func TestExtractDriveID(t *testing.T) {
	tests := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{"https://drive.google.com/file/d/abc-123/view", "abc-123", false},
		{"https://drive.google.com/file/d/abc-123", "abc-123", false},
		{"https://drive.google.com/drive/folders/f_99?usp=sharing", "f_99", false},
		{"https://drive.google.com/open?id=xyz789", "xyz789", false},
		{"https://drive.google.com/open?foo=bar", "", true},
		{"https://example.com/file/d/", "", true},
	}

	for _, test := range tests {
		got, err := ExtractDriveID(test.url)
		if test.wantErr {
			if err == nil {
				t.Errorf("ExtractDriveID(%q) expected error, got %q", test.url, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExtractDriveID(%q) unexpected error: %v", test.url, err)
			continue
		}
		if got != test.expected {
			t.Errorf("ExtractDriveID(%q) = %q, expected %q", test.url, got, test.expected)
		}
	}
}

// recordingFetcher captures what the registry dispatched to it
type recordingFetcher struct {
	got     []model.LinkRecord
	destDir string
}

func (r *recordingFetcher) Fetch(_ context.Context, rec model.LinkRecord, destDir string) error {
	r.got = append(r.got, rec)
	r.destDir = destDir
	return nil
}

func TestRegistry_Dispatch(t *testing.T) {
	base := t.TempDir()
	reg := NewRegistry(base)

	video := &recordingFetcher{}
	drive := &recordingFetcher{}
	reg.Register(model.LinkTypeVideo, video)
	reg.Register(model.LinkTypeDrive, drive)

	vidRec := model.LinkRecord{URL: "https://youtu.be/a", Type: model.LinkTypeVideo}
	drvRec := model.LinkRecord{URL: "https://drive.google.com/open?id=b", Type: model.LinkTypeDrive}

	if err := reg.Fetch(context.Background(), vidRec); err != nil {
		t.Fatalf("video dispatch: %v", err)
	}
	if err := reg.Fetch(context.Background(), drvRec); err != nil {
		t.Fatalf("drive dispatch: %v", err)
	}

	if len(video.got) != 1 || video.got[0].URL != vidRec.URL {
		t.Errorf("video fetcher saw %v", video.got)
	}
	if len(drive.got) != 1 || drive.got[0].URL != drvRec.URL {
		t.Errorf("drive fetcher saw %v", drive.got)
	}

	if video.destDir != reg.DestDir(model.LinkTypeVideo) {
		t.Errorf("video destDir = %s", video.destDir)
	}
	if !strings.HasSuffix(drive.destDir, "drive") {
		t.Errorf("drive destDir = %s", drive.destDir)
	}
}

func TestRegistry_UnsupportedType(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	err := reg.Fetch(context.Background(), model.LinkRecord{URL: "u", Type: model.LinkType("torrent")})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}
