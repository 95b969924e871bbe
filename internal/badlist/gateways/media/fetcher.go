// Package media downloads uploaded content from the homeserver media
// API so the hash pipeline can digest it. The engine never fetches
// bytes itself; this is the media-fetch collaborator.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/haukened/badlist/internal/badlist/common/log"
	"github.com/haukened/badlist/internal/badlist/domain"
)

// ErrRateLimited is returned when the media host answers 429. Callers
// treat it fail-open like any other fetch failure but log it apart.
var ErrRateLimited = errors.New("rate limited by media host")

// Fetcher retrieves mxc content over HTTP with a bounded timeout.
type Fetcher struct {
	baseURL string
	client  *http.Client
	logger  log.Logger
}

// NewFetcher builds a Fetcher for the given homeserver base URL. The
// timeout bounds the whole download, headers through body.
func NewFetcher(baseURL string, timeout time.Duration, logger log.Logger) *Fetcher {
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Fetch returns a stream of the content bytes. The caller owns closing
// the returned reader.
func (f *Fetcher) Fetch(ctx context.Context, mxc domain.MXC) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/_matrix/media/v3/download/%s/%s",
		f.baseURL,
		url.PathEscape(mxc.ServerName),
		url.PathEscape(mxc.MediaID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		drain(resp.Body)
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return nil, fmt.Errorf("download media: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// drain lets the transport reuse the connection.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
