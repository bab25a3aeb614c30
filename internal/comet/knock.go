package comet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultKnockURL refreshes the lease on a channel without fetching data.
const DefaultKnockURL = "https://www.plurk.com/_comet/generic"

// DefaultKnockTimeout bounds a knock so a stuck request cannot stall the loop.
const DefaultKnockTimeout = 10 * time.Second

// Knocker sends keepalive requests. Knocks are best effort.
type Knocker struct {
	httpClient *http.Client
	url        string
	timeout    time.Duration
}

func NewKnocker(client *http.Client, knockURL string, timeout time.Duration) *Knocker {
	if client == nil {
		client = http.DefaultClient
	}
	if knockURL == "" {
		knockURL = DefaultKnockURL
	}
	if timeout <= 0 {
		timeout = DefaultKnockTimeout
	}
	return &Knocker{httpClient: client, url: knockURL, timeout: timeout}
}

// Knock sends GET <knock url>?channel=<name> and discards the reply. The
// returned error is only for logging.
func (k *Knocker) Knock(ctx context.Context, channelName string) error {
	u, err := url.Parse(k.url)
	if err != nil {
		return &TransportError{Op: "knock", Err: fmt.Errorf("parsing knock url: %w", err)}
	}
	q := u.Query()
	q.Set("channel", channelName)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &TransportError{Op: "knock", Err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "knock", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "knock", StatusCode: resp.StatusCode}
	}
	return nil
}
