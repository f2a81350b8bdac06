package bluesky

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/blacktop/xface/internal/logutil"
	"github.com/blacktop/xface/internal/xface"
)

const (
	providerName   = "bluesky"
	requestTimeout = 30 * time.Second
	postCollection = "app.bsky.feed.post"
	maxPageSize    = 100
	// maxLookup is the app view limit on uris per getPosts call.
	maxLookup = 25
)

// errRecordNotFound is returned by the api when a record does not exist.
var errRecordNotFound = errors.New("record not found")

// Config contains the account the face posts as.
type Config struct {
	Handle      string
	AppPassword string
	PDSURL      string
}

// blob is an uploaded image as referenced from a post.
type blob struct {
	CID      string
	MimeType string
	// raw is the upload response, embedded as is in new posts.
	raw any
}

// record is a feed post of the account.
type record struct {
	URI    string
	Text   string
	Images []blob
}

type engagement struct {
	Likes   int64
	Reposts int64
}

// api is the part of the atproto XRPC surface the face uses.
type api interface {
	UploadBlob(ctx context.Context, data []byte) (blob, error)
	CreatePost(ctx context.Context, repo, text string, images []blob) (string, error)
	GetPost(ctx context.Context, repo, rkey string) (record, error)
	ListPosts(ctx context.Context, repo, cursor string, limit int64) ([]record, error)
	Engagement(ctx context.Context, uris []string) (map[string]engagement, error)
}

// Client is an authenticated session on a PDS. The channel is the feed of
// the session's own repo, and post record keys (TIDs) are the message ids.
type Client struct {
	api    api
	did    string
	handle string
	host   string
	http   *retryablehttp.Client
}

// New logs in with an app password.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.Handle) == "" {
		missing = append(missing, "handle")
	}
	if strings.TrimSpace(cfg.AppPassword) == "" {
		missing = append(missing, "app password")
	}
	if strings.TrimSpace(cfg.PDSURL) == "" {
		missing = append(missing, "pds url")
	}
	if len(missing) > 0 {
		return nil, xface.MissingEnvError{Provider: providerName, Variables: missing}
	}

	client, sess, err := login(ctx, cfg)
	if err != nil {
		return nil, xface.TransportError{Provider: providerName, Op: "login", Err: err}
	}
	logutil.Debugf("bluesky session created: did=%s handle=%s", sess.did, sess.handle)

	return &Client{
		api:    client,
		did:    sess.did,
		handle: sess.handle,
		host:   strings.TrimRight(cfg.PDSURL, "/"),
		http:   xface.NewHTTPClient(),
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Close releases the client. Sessions expire on their own.
func (c *Client) Close() error { return nil }

// Channel resolves the session's own repo. An empty id selects it; the DID
// and the handle both name it.
func (c *Client) Channel(_ context.Context, id string) (xface.Channel, error) {
	if id != "" && id != c.did && id != c.handle {
		return nil, fmt.Errorf("bluesky channel %s is not the authenticated account %s", id, c.did)
	}
	return &channel{client: c}, nil
}

type channel struct {
	client *Client
}

func (ch *channel) ID() string { return ch.client.did }

// Send creates a post record, uploading attached images first.
func (ch *channel) Send(ctx context.Context, draft xface.Draft) (*xface.Message, error) {
	c := ch.client
	images := make([]blob, 0, len(draft.Files))
	for _, f := range draft.Files {
		b, err := c.api.UploadBlob(ctx, f.Data)
		if err != nil {
			return nil, xface.TransportError{Provider: providerName, Op: "upload blob", Err: err}
		}
		images = append(images, b)
	}

	uri, err := c.api.CreatePost(ctx, c.did, draft.Content, images)
	if err != nil {
		return nil, xface.TransportError{Provider: providerName, Op: "create record", Err: err}
	}
	return c.convert(record{URI: uri, Text: draft.Content, Images: images}, engagement{})
}

func (ch *channel) Message(ctx context.Context, id uint64) (*xface.Message, error) {
	c := ch.client
	rkey := syntax.NewTIDFromInteger(id).String()
	rec, err := c.api.GetPost(ctx, c.did, rkey)
	if err != nil {
		if errors.Is(err, errRecordNotFound) {
			return nil, xface.NotFoundError{Provider: providerName, ID: rkey}
		}
		return nil, xface.TransportError{Provider: providerName, Op: "get record", Err: err}
	}

	counts, err := c.api.Engagement(ctx, []string{rec.URI})
	if err != nil {
		return nil, xface.TransportError{Provider: providerName, Op: "get posts", Err: err}
	}
	return c.convert(rec, counts[rec.URI])
}

func (ch *channel) History(ctx context.Context, page xface.Page) ([]*xface.Message, error) {
	c := ch.client
	limit := page.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	var cursor string
	if page.Before != 0 {
		cursor = syntax.NewTIDFromInteger(page.Before).String()
	}

	records, err := c.api.ListPosts(ctx, c.did, cursor, int64(limit))
	if err != nil {
		return nil, xface.TransportError{Provider: providerName, Op: "list records", Err: err}
	}

	counts := make(map[string]engagement, len(records))
	for start := 0; start < len(records); start += maxLookup {
		end := min(start+maxLookup, len(records))
		uris := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			uris = append(uris, r.URI)
		}
		batch, err := c.api.Engagement(ctx, uris)
		if err != nil {
			return nil, xface.TransportError{Provider: providerName, Op: "get posts", Err: err}
		}
		for uri, e := range batch {
			counts[uri] = e
		}
	}

	out := make([]*xface.Message, 0, len(records))
	for _, r := range records {
		msg, err := c.convert(r, counts[r.URI])
		if err != nil {
			logutil.Warnf("dropping bluesky record %s: %v", r.URI, err)
			continue
		}
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// CursorAt returns the smallest TID created at t: microseconds above a
// 10 bit clock id.
func (ch *channel) CursorAt(t time.Time) uint64 {
	us := t.UnixMicro()
	if us <= 0 {
		return 1
	}
	return uint64(us) << 10
}

func (c *Client) convert(r record, e engagement) (*xface.Message, error) {
	uri, err := syntax.ParseATURI(r.URI)
	if err != nil {
		return nil, err
	}
	tid, err := syntax.ParseTID(uri.RecordKey().String())
	if err != nil {
		return nil, fmt.Errorf("record key of %s: %w", r.URI, err)
	}

	// The record key carries the creation time.
	msg := &xface.Message{ID: tid.Integer(), CreatedAt: tid.Time()}
	if r.Text != "" {
		text := r.Text
		msg.Content = &text
	}
	for _, img := range r.Images {
		msg.Attachments = append(msg.Attachments, xface.RemoteAttachment{
			Name:   blobName(img),
			URL:    c.blobURL(img.CID),
			Client: c.http,
		})
	}
	msg.Reactions = []xface.Reaction{
		{Emoji: "like", Count: int(e.Likes)},
		{Emoji: "repost", Count: int(e.Reposts)},
	}
	return msg, nil
}

// blobName names an image after its CID. Blobs carry no file name.
func blobName(b blob) string {
	if mt := mimetype.Lookup(b.MimeType); mt != nil {
		return b.CID + mt.Extension()
	}
	return b.CID
}

func (c *Client) blobURL(cid string) string {
	q := url.Values{"did": {c.did}, "cid": {cid}}
	return c.host + "/xrpc/com.atproto.sync.getBlob?" + q.Encode()
}
