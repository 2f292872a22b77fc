// Package source provides the message source abstraction and its Telegram
// implementation. The rest of the app only sees Reader: a stream of messages
// for one source plus the dialog listing.
package source

import (
	"context"
	"time"

	"github.com/ytget/tg-harvest/internal/model"
)

// Message is one message as seen by the scanner
type Message struct {
	ID     int
	Text   string
	Date   time.Time
	Sender string
}

// Reader yields messages from a source, newest first. A limit of 0 means no
// limit. The callback is invoked sequentially; returning an error stops the
// iteration and is propagated.
type Reader interface {
	Messages(ctx context.Context, source string, limit int, fn func(Message) error) error
	Dialogs(ctx context.Context) ([]model.Channel, error)
}
