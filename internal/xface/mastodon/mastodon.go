package mastodon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/hashicorp/go-retryablehttp"
	mastodonapi "github.com/mattn/go-mastodon"

	"github.com/blacktop/xface/internal/logutil"
	"github.com/blacktop/xface/internal/xface"
)

const (
	providerName   = "mastodon"
	requestTimeout = 30 * time.Second
	maxPageSize    = 40
)

// Config contains the settings needed to reach a Mastodon server.
type Config struct {
	Server       string
	AccessToken  string
	ClientID     string
	ClientSecret string
}

// api is the part of the Mastodon client the face uses.
type api interface {
	GetAccountCurrentUser(ctx context.Context) (*mastodonapi.Account, error)
	PostStatus(ctx context.Context, toot *mastodonapi.Toot) (*mastodonapi.Status, error)
	UploadMediaFromMedia(ctx context.Context, media *mastodonapi.Media) (*mastodonapi.Attachment, error)
	GetStatus(ctx context.Context, id mastodonapi.ID) (*mastodonapi.Status, error)
	GetAccountStatuses(ctx context.Context, id mastodonapi.ID, pg *mastodonapi.Pagination) ([]*mastodonapi.Status, error)
}

// Client wraps the Mastodon API client. The channel is the timeline of the
// authenticated account.
type Client struct {
	client api
	http   *retryablehttp.Client
}

// New constructs a Mastodon connection.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.Server) == "" {
		missing = append(missing, "server")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		missing = append(missing, "access token")
	}
	if len(missing) > 0 {
		return nil, xface.MissingEnvError{Provider: providerName, Variables: missing}
	}

	mastodonClient := mastodonapi.NewClient(&mastodonapi.Config{
		Server:       cfg.Server,
		AccessToken:  cfg.AccessToken,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	mastodonClient.Timeout = requestTimeout

	return &Client{client: mastodonClient, http: xface.NewHTTPClient()}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Close releases the client. Mastodon keeps no connection open.
func (c *Client) Close() error { return nil }

// Channel resolves the authenticated account. An empty id selects it; any
// other id must match it.
func (c *Client) Channel(ctx context.Context, id string) (xface.Channel, error) {
	account, err := c.client.GetAccountCurrentUser(ctx)
	if err != nil {
		return nil, xface.TransportError{Provider: providerName, Op: "verify credentials", Err: err}
	}
	if id != "" && id != string(account.ID) {
		return nil, fmt.Errorf("mastodon channel %s is not the authenticated account %s", id, account.ID)
	}
	logutil.Debugf("resolved mastodon account: id=%s acct=%s", account.ID, account.Acct)
	return &channel{client: c, account: account.ID}, nil
}

type channel struct {
	client  *Client
	account mastodonapi.ID
}

func (ch *channel) ID() string { return string(ch.account) }

// Send publishes a new toot, uploading attached files first. Mastodon keeps
// no upload file name, so read-back attachments are named after the media
// URL the server assigns.
func (ch *channel) Send(ctx context.Context, draft xface.Draft) (*xface.Message, error) {
	var mediaIDs []mastodonapi.ID
	for _, f := range draft.Files {
		attachment, err := ch.client.client.UploadMediaFromMedia(ctx, &mastodonapi.Media{
			File: bytes.NewReader(f.Data),
		})
		if err != nil {
			return nil, xface.TransportError{Provider: providerName, Op: "upload media", Err: err}
		}
		mediaIDs = append(mediaIDs, attachment.ID)
	}

	status, err := ch.client.client.PostStatus(ctx, &mastodonapi.Toot{
		Status:   draft.Content,
		MediaIDs: mediaIDs,
	})
	if err != nil {
		return nil, xface.TransportError{Provider: providerName, Op: "post status", Err: err}
	}
	return ch.client.convert(status)
}

func (ch *channel) Message(ctx context.Context, id uint64) (*xface.Message, error) {
	statusID := strconv.FormatUint(id, 10)
	status, err := ch.client.client.GetStatus(ctx, mastodonapi.ID(statusID))
	if err != nil {
		var apiErr *mastodonapi.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, xface.NotFoundError{Provider: providerName, ID: statusID}
		}
		return nil, xface.TransportError{Provider: providerName, Op: "get status", Err: err}
	}
	if status.Account.ID != ch.account {
		return nil, xface.NotFoundError{Provider: providerName, ID: statusID}
	}
	return ch.client.convert(status)
}

func (ch *channel) History(ctx context.Context, page xface.Page) ([]*xface.Message, error) {
	limit := page.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	pg := &mastodonapi.Pagination{Limit: int64(limit)}
	if page.Before != 0 {
		pg.MaxID = mastodonapi.ID(strconv.FormatUint(page.Before, 10))
	}

	statuses, err := ch.client.client.GetAccountStatuses(ctx, ch.account, pg)
	if err != nil {
		return nil, xface.TransportError{Provider: providerName, Op: "list statuses", Err: err}
	}

	out := make([]*xface.Message, 0, len(statuses))
	for _, s := range statuses {
		msg, err := ch.client.convert(s)
		if err != nil {
			logutil.Warnf("dropping mastodon status %s: %v", s.ID, err)
			continue
		}
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// CursorAt builds a status id for t; Mastodon ids carry the creation time
// in milliseconds above the low 16 bits.
func (ch *channel) CursorAt(t time.Time) uint64 {
	ms := t.UnixMilli()
	if ms <= 0 {
		return 1
	}
	return uint64(ms) << 16
}

func (c *Client) convert(s *mastodonapi.Status) (*xface.Message, error) {
	id, err := strconv.ParseUint(string(s.ID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse status id %q: %w", s.ID, err)
	}

	msg := &xface.Message{ID: id, CreatedAt: s.CreatedAt}
	if text, err := plainText(s.Content); err != nil {
		return nil, fmt.Errorf("convert status %s content: %w", s.ID, err)
	} else if text != "" {
		msg.Content = &text
	}

	for _, a := range s.MediaAttachments {
		msg.Attachments = append(msg.Attachments, xface.RemoteAttachment{
			Name:   path.Base(a.URL),
			URL:    a.URL,
			Client: c.http,
		})
	}
	msg.Reactions = []xface.Reaction{
		{Emoji: "favourite", Count: int(s.FavouritesCount)},
		{Emoji: "reblog", Count: int(s.ReblogsCount)},
	}
	return msg, nil
}

func plainText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}
