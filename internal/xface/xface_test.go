package xface

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostID(t *testing.T) {
	for _, id := range []uint64{0, 1, 1234567890123456789, math.MaxUint64} {
		got, ok := MessageID(PostID(id))
		require.True(t, ok)
		assert.Equal(t, id, got)
	}

	_, ok := MessageID(uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.False(t, ok)
}

func TestPayloadDraft(t *testing.T) {
	payload := Payload{
		KeyText:  EncodeText(TextContent{Content: "hi"}),
		KeyImage: EncodeImage(ImageContent{Raw: []byte{0xfb, 0xff, 0xfe}, Filename: "a.png"}),
	}
	assert.Equal(t, "-__-", payload[KeyImage].(map[string]any)[KeyRaw])

	draft, err := payload.Draft()
	require.NoError(t, err)
	assert.Equal(t, "hi", draft.Content)
	assert.Equal(t, []File{{Name: "a.png", Data: []byte{0xfb, 0xff, 0xfe}}}, draft.Files)

	_, err = Payload{}.Draft()
	assert.Error(t, err)

	draft, err = Payload{KeyText: EncodeText(TextContent{})}.Draft()
	require.NoError(t, err, "an empty text is still a text")
	assert.Empty(t, draft.Content)

	_, _, err = Payload{KeyText: "plain"}.DecodeText()
	assert.Error(t, err)

	_, _, err = Payload{KeyImage: map[string]any{KeyRaw: "not base64!", KeyFilename: "a"}}.DecodeImage()
	assert.Error(t, err)
}

func TestEncodePost(t *testing.T) {
	assert.Equal(t, Payload{}, EncodePost(PostData{}))
	assert.Equal(t, Payload{
		KeyImage: map[string]any{KeyRaw: "-__-", KeyFilename: "x.png"},
	}, EncodePost(PostData{Image: &ImageContent{Raw: []byte{0xfb, 0xff, 0xfe}, Filename: "x.png"}}))
}

func TestRemoteAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write([]byte("image"))
		case "/huge.png":
			_, _ = w.Write(make([]byte, maxAttachmentBytes+1))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewHTTPClient()
	client.RetryMax = 0

	a := RemoteAttachment{Name: "ok.png", URL: srv.URL + "/ok.png", Client: client}
	assert.Equal(t, "ok.png", a.Filename())
	data, err := a.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("image"), data)

	missing := RemoteAttachment{Name: "gone.png", URL: srv.URL + "/gone.png", Client: client}
	_, err = missing.Read(context.Background())
	assert.Error(t, err)

	huge := RemoteAttachment{Name: "huge.png", URL: srv.URL + "/huge.png", Client: client}
	data, err = huge.Read(context.Background())
	assert.ErrorContains(t, err, "exceeds")
	assert.Nil(t, data, "oversized attachments are never truncated")
}
