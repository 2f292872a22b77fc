// Package scan drives a source reader over one channel, feeds every message
// through the link extractor, and records new links in the channel's store.
package scan

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ytget/tg-harvest/internal/extract"
	"github.com/ytget/tg-harvest/internal/model"
	"github.com/ytget/tg-harvest/internal/source"
	"github.com/ytget/tg-harvest/internal/store"
)

// DefaultProgressEvery is how many messages pass between progress log lines
const DefaultProgressEvery = 100

// Result summarizes one scan run
type Result struct {
	Source          string
	MessagesScanned int
	LinksFound      int
	Added           int
	Skipped         int
}

// Scanner harvests links from one source at a time. Scanning is sequential;
// existing records are never modified, only new URLs are inserted.
type Scanner struct {
	reader        source.Reader
	manager       *store.Manager
	log           *zap.Logger
	progressEvery int
}

// New creates a Scanner
func New(reader source.Reader, manager *store.Manager, log *zap.Logger) *Scanner {
	return &Scanner{
		reader:        reader,
		manager:       manager,
		log:           log,
		progressEvery: DefaultProgressEvery,
	}
}

// SetProgressEvery overrides the progress reporting interval
func (s *Scanner) SetProgressEvery(n int) {
	if n > 0 {
		s.progressEvery = n
	}
}

// Run scans up to limit messages (0 = all) from src and inserts every
// recognized link into the source's store, then persists the store once.
func (s *Scanner) Run(ctx context.Context, src string, limit int) (Result, error) {
	result := Result{Source: src}

	st, err := s.manager.Open(src)
	if err != nil {
		if !errors.Is(err, store.ErrCorruptStore) {
			return result, err
		}
		s.log.Warn("store was corrupt, starting fresh", zap.String("source", src), zap.Error(err))
	}

	err = s.reader.Messages(ctx, src, limit, func(msg source.Message) error {
		result.MessagesScanned++
		if s.progressEvery > 0 && result.MessagesScanned%s.progressEvery == 0 {
			s.log.Info("scanning",
				zap.String("source", src),
				zap.Int("messages", result.MessagesScanned),
				zap.Int("links", result.LinksFound),
			)
		}

		for _, link := range extract.Links(msg.Text) {
			result.LinksFound++
			added := st.InsertIfAbsent(model.LinkRecord{
				URL:       link.URL,
				Type:      link.Type,
				Caption:   model.ClipCaption(msg.Text),
				Sender:    msg.Sender,
				MessageID: msg.ID,
				Date:      msg.Date,
			})
			if added {
				result.Added++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("scan %s: %w", src, err)
	}

	if err := st.Persist(); err != nil {
		return result, err
	}

	s.log.Info("scan complete",
		zap.String("source", src),
		zap.Int("messages", result.MessagesScanned),
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}
