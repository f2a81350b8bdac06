package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/blacktop/xface/internal/logutil"
	"github.com/blacktop/xface/internal/xface"
)

const (
	providerName = "discord"

	// epochMillis is the Discord snowflake epoch (2015-01-01T00:00:00Z).
	epochMillis    = 1420070400000
	maxPageSize    = 100
	requestTimeout = 30 * time.Second
)

// Config holds the bot credentials.
type Config struct {
	Token string
}

// restAPI is the part of *discordgo.Session the face uses.
type restAPI interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	Close() error
}

// Client is a REST connection to Discord authenticated as a bot.
type Client struct {
	api  restAPI
	http *retryablehttp.Client
}

// New opens a bot session. No gateway connection is made; all calls go
// through the REST API.
func New(ctx context.Context, cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, xface.MissingEnvError{Provider: providerName, Variables: []string{"token"}}
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}

	session, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Client = &http.Client{Timeout: requestTimeout}
	session.UserAgent = "xface/1"

	return newClient(session), nil
}

func newClient(api restAPI) *Client {
	return &Client{api: api, http: xface.NewHTTPClient()}
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Close ends the session.
func (c *Client) Close() error { return c.api.Close() }

// Channel resolves a text channel by id.
func (c *Client) Channel(ctx context.Context, id string) (xface.Channel, error) {
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid discord channel id %q", id)
	}

	ch, err := c.api.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, c.wrap("fetch channel", id, err)
	}
	if !textable(ch.Type) {
		return nil, fmt.Errorf("discord channel %s is not textable", id)
	}
	logutil.Debugf("resolved discord channel: id=%s name=%s", ch.ID, ch.Name)

	return &channel{client: c, id: ch.ID}, nil
}

func textable(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeDM,
		discordgo.ChannelTypeGroupDM,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildVoice:
		return true
	}
	return false
}

func (c *Client) wrap(op, id string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return xface.NotFoundError{Provider: providerName, ID: id}
	}
	return xface.TransportError{Provider: providerName, Op: op, Err: err}
}

type channel struct {
	client *Client
	id     string
}

func (ch *channel) ID() string { return ch.id }

func (ch *channel) Send(ctx context.Context, draft xface.Draft) (*xface.Message, error) {
	data := &discordgo.MessageSend{Content: draft.Content}
	for _, f := range draft.Files {
		data.Files = append(data.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: mimetype.Detect(f.Data).String(),
			Reader:      bytes.NewReader(f.Data),
		})
	}

	logutil.Debugf("sending discord message: channel=%s files=%d", ch.id, len(data.Files))
	msg, err := ch.client.api.ChannelMessageSendComplex(ch.id, data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, xface.TransportError{Provider: providerName, Op: "send message", Err: err}
	}
	return ch.client.convert(msg)
}

func (ch *channel) Message(ctx context.Context, id uint64) (*xface.Message, error) {
	messageID := strconv.FormatUint(id, 10)
	msg, err := ch.client.api.ChannelMessage(ch.id, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, ch.client.wrap("fetch message", messageID, err)
	}
	return ch.client.convert(msg)
}

func (ch *channel) History(ctx context.Context, page xface.Page) ([]*xface.Message, error) {
	limit := page.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	var before string
	if page.Before != 0 {
		before = strconv.FormatUint(page.Before, 10)
	}

	msgs, err := ch.client.api.ChannelMessages(ch.id, limit, before, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, xface.TransportError{Provider: providerName, Op: "list messages", Err: err}
	}

	out := make([]*xface.Message, 0, len(msgs))
	for _, m := range msgs {
		converted, err := ch.client.convert(m)
		if err != nil {
			logutil.Warnf("dropping discord message %s: %v", m.ID, err)
			continue
		}
		out = append(out, converted)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// CursorAt returns the smallest snowflake created at t.
func (ch *channel) CursorAt(t time.Time) uint64 {
	ms := t.UnixMilli() - epochMillis
	if ms <= 0 {
		// Zero would mean "newest"; 1 sits before every real message.
		return 1
	}
	return uint64(ms) << 22
}

func (c *Client) convert(m *discordgo.Message) (*xface.Message, error) {
	id, err := strconv.ParseUint(m.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse message id %q: %w", m.ID, err)
	}

	msg := &xface.Message{ID: id, CreatedAt: m.Timestamp}
	if m.Content != "" {
		content := m.Content
		msg.Content = &content
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, xface.RemoteAttachment{Name: a.Filename, URL: a.URL, Client: c.http})
	}
	for _, r := range m.Reactions {
		if r == nil || r.Emoji == nil {
			continue
		}
		msg.Reactions = append(msg.Reactions, xface.Reaction{Emoji: emojiName(r.Emoji), Count: r.Count})
	}
	return msg, nil
}

func emojiName(e *discordgo.Emoji) string {
	if e.ID != "" {
		return e.Name + ":" + e.ID
	}
	return e.Name
}
