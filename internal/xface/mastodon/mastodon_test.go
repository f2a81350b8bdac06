package mastodon

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	mastodonapi "github.com/mattn/go-mastodon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blacktop/xface/internal/xface"
)

type fakeAPI struct {
	me        *mastodonapi.Account
	statuses  map[mastodonapi.ID]*mastodonapi.Status
	timeline  []*mastodonapi.Status
	uploads   [][]byte
	alts      []string
	toots     []*mastodonapi.Toot
	lastPage  *mastodonapi.Pagination
	statusErr error
}

func (f *fakeAPI) GetAccountCurrentUser(context.Context) (*mastodonapi.Account, error) {
	return f.me, nil
}

func (f *fakeAPI) PostStatus(_ context.Context, toot *mastodonapi.Toot) (*mastodonapi.Status, error) {
	f.toots = append(f.toots, toot)
	return &mastodonapi.Status{ID: "110000000000000001", Account: *f.me, Content: "<p>" + toot.Status + "</p>"}, nil
}

func (f *fakeAPI) UploadMediaFromMedia(_ context.Context, media *mastodonapi.Media) (*mastodonapi.Attachment, error) {
	data, err := io.ReadAll(media.File)
	if err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, data)
	f.alts = append(f.alts, media.Description)
	return &mastodonapi.Attachment{ID: "m1"}, nil
}

func (f *fakeAPI) GetStatus(_ context.Context, id mastodonapi.ID) (*mastodonapi.Status, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if s, ok := f.statuses[id]; ok {
		return s, nil
	}
	return nil, errors.New("status lookup failed")
}

func (f *fakeAPI) GetAccountStatuses(_ context.Context, _ mastodonapi.ID, pg *mastodonapi.Pagination) ([]*mastodonapi.Status, error) {
	f.lastPage = pg
	return f.timeline, nil
}

func newChannel(t *testing.T, api *fakeAPI) xface.Channel {
	t.Helper()
	c := &Client{client: api, http: xface.NewHTTPClient()}
	ch, err := c.Channel(context.Background(), "")
	require.NoError(t, err)
	return ch
}

func TestChannelIsAuthenticatedAccount(t *testing.T) {
	api := &fakeAPI{me: &mastodonapi.Account{ID: "77", Acct: "bot"}}
	c := &Client{client: api}

	ch, err := c.Channel(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, "77", ch.ID())

	_, err = c.Channel(context.Background(), "78")
	assert.Error(t, err)
}

func TestSendUploadsMedia(t *testing.T) {
	api := &fakeAPI{me: &mastodonapi.Account{ID: "77"}}
	ch := newChannel(t, api)

	msg, err := ch.Send(context.Background(), xface.Draft{
		Content: "hello",
		Files:   []xface.File{{Name: "cat.png", Data: []byte("png")}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(110000000000000001), msg.ID)
	require.NotNil(t, msg.Content)
	assert.Equal(t, "hello", *msg.Content)

	require.Len(t, api.toots, 1)
	assert.Equal(t, []mastodonapi.ID{"m1"}, api.toots[0].MediaIDs)
	assert.Equal(t, [][]byte{[]byte("png")}, api.uploads)
	assert.Equal(t, []string{""}, api.alts, "file names are not alt text")
}

func TestMessage(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		me: &mastodonapi.Account{ID: "77"},
		statuses: map[mastodonapi.ID]*mastodonapi.Status{
			"5": {
				ID:               "5",
				Account:          mastodonapi.Account{ID: "77"},
				Content:          "<p>hi <strong>there</strong></p>",
				CreatedAt:        created,
				FavouritesCount:  4,
				ReblogsCount:     1,
				MediaAttachments: []mastodonapi.Attachment{{ID: "a", URL: "https://files.example/media/abc.png"}},
			},
			"6": {ID: "6", Account: mastodonapi.Account{ID: "99"}},
		},
	}
	ch := newChannel(t, api)

	msg, err := ch.Message(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, msg.Content)
	assert.Equal(t, "hi **there**", *msg.Content)
	assert.Equal(t, created, msg.CreatedAt)
	assert.Equal(t, []xface.Reaction{{Emoji: "favourite", Count: 4}, {Emoji: "reblog", Count: 1}}, msg.Reactions)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "abc.png", msg.Attachments[0].Filename())

	_, err = ch.Message(context.Background(), 6)
	var nf xface.NotFoundError
	assert.ErrorAs(t, err, &nf, "statuses of other accounts are not in the channel")

	api.statusErr = errors.New("connection reset")
	_, err = ch.Message(context.Background(), 5)
	var terr xface.TransportError
	assert.ErrorAs(t, err, &terr)
}

func TestHistory(t *testing.T) {
	api := &fakeAPI{
		me: &mastodonapi.Account{ID: "77"},
		timeline: []*mastodonapi.Status{
			{ID: "10", Content: ""},
			{ID: "12", Content: "<p>b</p>"},
			{ID: "x"},
		},
	}
	ch := newChannel(t, api)

	msgs, err := ch.History(context.Background(), xface.Page{Before: 50, Limit: 100})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, uint64(12), msgs[0].ID)
	assert.Equal(t, uint64(10), msgs[1].ID)
	assert.Nil(t, msgs[1].Content)

	assert.Equal(t, mastodonapi.ID("50"), api.lastPage.MaxID)
	assert.Equal(t, int64(maxPageSize), api.lastPage.Limit)
}

func TestCursorAt(t *testing.T) {
	ch := &channel{}
	at := time.UnixMilli(1700000000000)
	assert.Equal(t, uint64(1700000000000)<<16, ch.CursorAt(at))
}

func TestNewRequiresServerAndToken(t *testing.T) {
	_, err := New(context.Background(), Config{})
	var merr xface.MissingEnvError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, []string{"server", "access token"}, merr.Variables)
}
