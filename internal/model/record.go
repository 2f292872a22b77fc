package model

import (
	"fmt"
	"strings"
	"time"
)

// Caption length cap, matching what the scanner stores per message
const MaxCaptionLength = 500

// LinkType identifies which fetcher handles a harvested link
type LinkType string

const (
	// LinkTypeVideo is a YouTube video or playlist link
	LinkTypeVideo LinkType = "video"

	// LinkTypeDrive is a Google Drive file or folder link
	LinkTypeDrive LinkType = "drive"
)

// LinkTypes lists all recognized link types
func LinkTypes() []LinkType {
	return []LinkType{LinkTypeVideo, LinkTypeDrive}
}

// ParseLinkType converts a CLI flag value to a LinkType. An empty value
// means no type filter.
func ParseLinkType(s string) (LinkType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "video", "youtube":
		return LinkTypeVideo, nil
	case "drive":
		return LinkTypeDrive, nil
	default:
		return "", fmt.Errorf("unknown link type %q (expected video or drive)", s)
	}
}

// String returns the string representation of LinkType
func (t LinkType) String() string {
	return string(t)
}

// LinkRecord is one harvested link with its provenance and download state.
// The URL is the identity key within a source store; JSON tags define the
// stable on-disk form.
type LinkRecord struct {
	URL          string    `json:"url"`
	Type         LinkType  `json:"type"`
	Caption      string    `json:"caption,omitempty"`
	Sender       string    `json:"sender,omitempty"`
	MessageID    int       `json:"message_id,omitempty"`
	Date         time.Time `json:"date"`
	Status       Status    `json:"status"`
	LastError    string    `json:"last_error,omitempty"`
	CollectedAt  time.Time `json:"collected_at"`
	DownloadedAt time.Time `json:"downloaded_at,omitzero"`
}

// ClipCaption returns the caption truncated to MaxCaptionLength runes
func ClipCaption(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxCaptionLength {
		return text
	}
	return string(runes[:MaxCaptionLength])
}

// MatchesKeyword reports whether the record's caption contains the keyword,
// case-insensitive. An empty keyword matches every record.
func (r *LinkRecord) MatchesKeyword(keyword string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Caption), strings.ToLower(keyword))
}

// Channel is one entry of the persisted channel snapshot
type Channel struct {
	Name     string `json:"name"`
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Kind     string `json:"type"` // "channel" or "group"
}
