package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"pkt.systems/entropool/internal/tokenauth"
	"pkt.systems/entropool/pool"
)

// DefaultHTTPBytes caps how much of a response body HTTP reads when Bytes is
// zero.
const DefaultHTTPBytes = 64

// HTTP fetches bytes from a remote entropy service with a GET request. Remote
// bytes are untrusted by default: Credit is the fraction of each byte that is
// credited, zero credits nothing, and a negative value asks the
// compressibility estimator.
type HTTP struct {
	URL    string
	Token  string
	Bytes  int
	Credit float64
	Client *http.Client
}

// Name implements Source.
func (h HTTP) Name() string { return "http:" + h.URL }

// Fill implements Source.
func (h HTTP) Fill(ctx context.Context, sink pool.Sink) error {
	n := h.Bytes
	if n <= 0 {
		n = DefaultHTTPBytes
	}
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	client = tokenauth.Wrap(client, h.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return unavailable(h.Name(), err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	resp, err := client.Do(req)
	if err != nil {
		return unavailable(h.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return unavailable(h.Name(), fmt.Errorf("unexpected status %s", resp.Status))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(n)))
	if err != nil {
		return unavailable(h.Name(), err)
	}
	defer clear(data)
	if len(data) == 0 {
		return unavailable(h.Name(), fmt.Errorf("empty response"))
	}
	return add(h.Name(), sink, data, h.Credit)
}
