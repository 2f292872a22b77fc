// Package extract implements link recognition over message text. It is pure:
// given a text it returns the recognized links with their type tag, and has
// no side effects or I/O.
package extract

import (
	"regexp"

	"github.com/ytget/tg-harvest/internal/model"
)

// URL shapes recognized per link type. Scheme and www prefix are optional,
// matching how links commonly appear in chat messages.
var (
	videoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtube\.com/watch\?v=[\w-]+`),
		regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtu\.be/[\w-]+`),
		regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtube\.com/playlist\?list=[\w-]+`),
	}

	drivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:https?://)?drive\.google\.com/file/d/[\w-]+`),
		regexp.MustCompile(`(?i)(?:https?://)?drive\.google\.com/drive/folders/[\w-]+`),
		regexp.MustCompile(`(?i)(?:https?://)?drive\.google\.com/open\?id=[\w-]+`),
	}
)

// Extracted is one recognized link
type Extracted struct {
	URL  string
	Type model.LinkType
}

// Links scans text and returns recognized links in order of first
// appearance. Duplicate URLs within the same text collapse to one entry.
// Unrecognized URLs are ignored.
func Links(text string) []Extracted {
	if text == "" {
		return nil
	}

	type hit struct {
		pos  int
		link Extracted
	}

	var hits []hit
	collect := func(patterns []*regexp.Regexp, linkType model.LinkType) {
		for _, pattern := range patterns {
			for _, loc := range pattern.FindAllStringIndex(text, -1) {
				hits = append(hits, hit{
					pos:  loc[0],
					link: Extracted{URL: text[loc[0]:loc[1]], Type: linkType},
				})
			}
		}
	}

	collect(videoPatterns, model.LinkTypeVideo)
	collect(drivePatterns, model.LinkTypeDrive)

	if len(hits) == 0 {
		return nil
	}

	// Order by position in the text, then drop duplicate URLs keeping the
	// first occurrence.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	seen := make(map[string]struct{}, len(hits))
	links := make([]Extracted, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.link.URL]; ok {
			continue
		}
		seen[h.link.URL] = struct{}{}
		links = append(links, h.link)
	}

	return links
}
