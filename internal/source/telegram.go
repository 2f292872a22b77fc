package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/ytget/tg-harvest/internal/model"
)

// Paging sizes for Telegram API calls
const (
	historyBatchSize = 100
	dialogsPageSize  = 100
)

// Telegram reads messages through an MTProto client with a file-backed
// session, mirroring the interactive code/2FA login of the usual clients.
type Telegram struct {
	apiID       int
	apiHash     string
	phone       string
	sessionPath string
	log         *zap.Logger
}

// NewTelegram creates a Telegram reader. Nothing connects until the first
// Messages or Dialogs call.
func NewTelegram(apiID int, apiHash, phone, sessionPath string, log *zap.Logger) *Telegram {
	return &Telegram{
		apiID:       apiID,
		apiHash:     apiHash,
		phone:       phone,
		sessionPath: sessionPath,
		log:         log,
	}
}

// Messages implements Reader by paging through messages.getHistory, newest
// first, until fn has seen limit messages or the history is exhausted.
func (t *Telegram) Messages(ctx context.Context, src string, limit int, fn func(Message) error) error {
	return t.run(ctx, func(ctx context.Context, api *tg.Client) error {
		peer, err := t.resolve(ctx, api, src)
		if err != nil {
			return err
		}

		seen := 0
		offsetID := 0
		for {
			batch := historyBatchSize
			if limit > 0 && limit-seen < batch {
				batch = limit - seen
			}
			if batch <= 0 {
				return nil
			}

			res, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
				Peer:     peer,
				OffsetID: offsetID,
				Limit:    batch,
			})
			if err != nil {
				return fmt.Errorf("get history: %w", err)
			}

			modified, ok := res.AsModified()
			if !ok {
				return errors.New("unexpected messages.getHistory response")
			}

			msgs := modified.GetMessages()
			if len(msgs) == 0 {
				return nil
			}

			for _, m := range msgs {
				msg, ok := m.(*tg.Message)
				if !ok {
					// Service messages carry no text.
					if withID, ok := m.(interface{ GetID() int }); ok {
						offsetID = withID.GetID()
					}
					continue
				}
				offsetID = msg.ID

				sender := msg.PostAuthor
				if err := fn(Message{
					ID:     msg.ID,
					Text:   msg.Message,
					Date:   time.Unix(int64(msg.Date), 0),
					Sender: sender,
				}); err != nil {
					return err
				}

				seen++
				if limit > 0 && seen >= limit {
					return nil
				}
			}
		}
	})
}

// Dialogs implements Reader by listing the account's channels and groups
func (t *Telegram) Dialogs(ctx context.Context) ([]model.Channel, error) {
	var channels []model.Channel
	err := t.run(ctx, func(ctx context.Context, api *tg.Client) error {
		res, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetPeer: &tg.InputPeerEmpty{},
			Limit:      dialogsPageSize,
		})
		if err != nil {
			return fmt.Errorf("get dialogs: %w", err)
		}

		modified, ok := res.AsModified()
		if !ok {
			return errors.New("unexpected messages.getDialogs response")
		}

		for _, chat := range modified.GetChats() {
			switch c := chat.(type) {
			case *tg.Channel:
				kind := "channel"
				if c.Megagroup {
					kind = "group"
				}
				channels = append(channels, model.Channel{
					Name:     c.Title,
					ID:       c.ID,
					Username: c.Username,
					Kind:     kind,
				})
			case *tg.Chat:
				channels = append(channels, model.Channel{
					Name: c.Title,
					ID:   c.ID,
					Kind: "group",
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// run connects, authenticates if necessary, and hands the raw API to fn
func (t *Telegram) run(ctx context.Context, fn func(ctx context.Context, api *tg.Client) error) error {
	client := telegram.NewClient(t.apiID, t.apiHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: t.sessionPath},
		Logger:         t.log.Named("mtproto"),
	})

	return client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(termAuth{phone: t.phone}, auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("telegram auth: %w", err)
		}
		return fn(ctx, client.API())
	})
}

// resolve turns a username or numeric id into an input peer. Numeric ids
// are looked up in the account's dialogs, since a bare id carries no access
// hash.
func (t *Telegram) resolve(ctx context.Context, api *tg.Client, src string) (tg.InputPeerClass, error) {
	if id, err := strconv.ParseInt(strings.TrimPrefix(src, "-100"), 10, 64); err == nil && !strings.HasPrefix(src, "@") {
		return t.resolveID(ctx, api, id)
	}

	mgr := peers.Options{}.Build(api)
	p, err := mgr.ResolveDomain(ctx, strings.TrimPrefix(src, "@"))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", src, err)
	}
	return p.InputPeer(), nil
}

// resolveID scans the dialog list for a channel or group with the given id
func (t *Telegram) resolveID(ctx context.Context, api *tg.Client, id int64) (tg.InputPeerClass, error) {
	res, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogsPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}

	modified, ok := res.AsModified()
	if !ok {
		return nil, errors.New("unexpected messages.getDialogs response")
	}

	for _, chat := range modified.GetChats() {
		switch c := chat.(type) {
		case *tg.Channel:
			if c.ID == id {
				return &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}, nil
			}
		case *tg.Chat:
			if c.ID == id {
				return &tg.InputPeerChat{ChatID: c.ID}, nil
			}
		}
	}
	return nil, fmt.Errorf("no dialog with id %d", id)
}

// termAuth prompts for the login code (and 2FA password if required) on the
// terminal, like the original interactive login.
type termAuth struct {
	phone string
}

func (a termAuth) Phone(_ context.Context) (string, error) {
	return a.phone, nil
}

func (a termAuth) Password(_ context.Context) (string, error) {
	return prompt("Enter 2FA password: ")
}

func (a termAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return prompt("Enter code: ")
}

func (a termAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up not supported")
}

func (a termAuth) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
