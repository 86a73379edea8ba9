// Package netx fetches files through presigned links, which carry their
// own authorization and need no store credentials.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrLinkRejected is returned when the store answers a link with a
// non-200 status, usually because it expired.
var ErrLinkRejected = errors.New("link rejected")

// FetchPresignedURL streams the body behind a presigned GET url into w.
// A nil client means http.DefaultClient.
func FetchPresignedURL(ctx context.Context, client *http.Client, url string, w io.Writer) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: %s; body: %s", ErrLinkRejected, resp.Status, string(b))
	}
	return io.Copy(w, resp.Body)
}
