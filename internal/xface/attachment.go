package xface

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/blacktop/xface/internal/logutil"
)

const maxAttachmentBytes = 25 << 20

// NewHTTPClient returns the client used to download attachments.
func NewHTTPClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = logutil.Leveled()
	return client
}

// RemoteAttachment is an attachment fetched from a URL on demand.
type RemoteAttachment struct {
	Name   string
	URL    string
	Client *retryablehttp.Client
}

// Filename returns the attachment file name.
func (a RemoteAttachment) Filename() string { return a.Name }

// Read downloads the attachment bytes.
func (a RemoteAttachment) Read(ctx context.Context) ([]byte, error) {
	client := a.Client
	if client == nil {
		client = NewHTTPClient()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build attachment request: %w", err)
	}

	logutil.Debugf("downloading attachment: name=%s", a.Name)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download attachment %q: %w", a.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download attachment %q: unexpected status %s", a.Name, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment %q: %w", a.Name, err)
	}
	if len(data) > maxAttachmentBytes {
		return nil, fmt.Errorf("attachment %q exceeds %d bytes", a.Name, maxAttachmentBytes)
	}
	return data, nil
}
