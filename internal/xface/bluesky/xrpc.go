package bluesky

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

type session struct {
	did    string
	handle string
}

// xrpcAPI implements api on an indigo XRPC client.
type xrpcAPI struct {
	client *xrpc.Client
}

// TODO: refresh the session with RefreshJwt once the access token expires;
// long-lived faces currently need a rebuild.
func login(ctx context.Context, cfg Config) (xrpcAPI, session, error) {
	userAgent := "xface/1"
	client := &xrpc.Client{
		Client:    &http.Client{Timeout: requestTimeout},
		Host:      cfg.PDSURL,
		UserAgent: &userAgent,
	}

	out, err := atproto.ServerCreateSession(ctx, client, &atproto.ServerCreateSession_Input{
		Identifier: cfg.Handle,
		Password:   cfg.AppPassword,
	})
	if err != nil {
		return xrpcAPI{}, session{}, err
	}
	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
		Handle:     out.Handle,
		Did:        out.Did,
	}
	return xrpcAPI{client: client}, session{did: out.Did, handle: out.Handle}, nil
}

func (x xrpcAPI) UploadBlob(ctx context.Context, data []byte) (blob, error) {
	resp, err := atproto.RepoUploadBlob(ctx, x.client, bytes.NewReader(data))
	if err != nil {
		return blob{}, err
	}
	if resp.Blob == nil {
		return blob{}, errors.New("upload blob: empty response")
	}
	return blob{CID: resp.Blob.Ref.String(), MimeType: resp.Blob.MimeType, raw: resp.Blob}, nil
}

func (x xrpcAPI) CreatePost(ctx context.Context, repo, text string, images []blob) (string, error) {
	post := &bsky.FeedPost{
		LexiconTypeID: postCollection,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Text:          text,
	}
	if len(images) > 0 {
		embed := &bsky.EmbedImages{LexiconTypeID: "app.bsky.embed.images"}
		for _, img := range images {
			lexBlob, ok := img.raw.(*util.LexBlob)
			if !ok {
				return "", fmt.Errorf("image %s was not uploaded", img.CID)
			}
			embed.Images = append(embed.Images, &bsky.EmbedImages_Image{Image: lexBlob})
		}
		post.Embed = &bsky.FeedPost_Embed{EmbedImages: embed}
	}

	out, err := atproto.RepoCreateRecord(ctx, x.client, &atproto.RepoCreateRecord_Input{
		Collection: postCollection,
		Repo:       repo,
		Record:     &util.LexiconTypeDecoder{Val: post},
	})
	if err != nil {
		return "", err
	}
	return out.Uri, nil
}

func (x xrpcAPI) GetPost(ctx context.Context, repo, rkey string) (record, error) {
	out, err := atproto.RepoGetRecord(ctx, x.client, "", postCollection, repo, rkey)
	if err != nil {
		if isNotFound(err) {
			return record{}, errRecordNotFound
		}
		return record{}, err
	}
	return toRecord(out.Uri, out.Value)
}

func (x xrpcAPI) ListPosts(ctx context.Context, repo, cursor string, limit int64) ([]record, error) {
	out, err := atproto.RepoListRecords(ctx, x.client, postCollection, cursor, limit, repo, false)
	if err != nil {
		return nil, err
	}
	records := make([]record, 0, len(out.Records))
	for _, r := range out.Records {
		rec, err := toRecord(r.Uri, r.Value)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (x xrpcAPI) Engagement(ctx context.Context, uris []string) (map[string]engagement, error) {
	out, err := bsky.FeedGetPosts(ctx, x.client, uris)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]engagement, len(out.Posts))
	for _, p := range out.Posts {
		var e engagement
		if p.LikeCount != nil {
			e.Likes = *p.LikeCount
		}
		if p.RepostCount != nil {
			e.Reposts = *p.RepostCount
		}
		counts[p.Uri] = e
	}
	return counts, nil
}

func toRecord(uri string, value *util.LexiconTypeDecoder) (record, error) {
	if value == nil {
		return record{}, fmt.Errorf("record %s has no value", uri)
	}
	post, ok := value.Val.(*bsky.FeedPost)
	if !ok {
		return record{}, fmt.Errorf("record %s is not a feed post", uri)
	}

	rec := record{URI: uri, Text: post.Text}
	if post.Embed != nil && post.Embed.EmbedImages != nil {
		for _, img := range post.Embed.EmbedImages.Images {
			if img == nil || img.Image == nil {
				continue
			}
			rec.Images = append(rec.Images, blob{
				CID:      img.Image.Ref.String(),
				MimeType: img.Image.MimeType,
				raw:      img.Image,
			})
		}
	}
	return rec, nil
}

func isNotFound(err error) bool {
	var xerr *xrpc.XRPCError
	if errors.As(err, &xerr) && xerr.ErrStr == "RecordNotFound" {
		return true
	}
	var herr *xrpc.Error
	return errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound
}
