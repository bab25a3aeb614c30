package comet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultPollTimeout bounds one long-poll. The server holds the request until
// it has data or its own hold time runs out, so this must stay well above
// the server's hold time.
const DefaultPollTimeout = 120 * time.Second

// maxPollBody caps how much of a poll response is read.
const maxPollBody = 8 << 20

// Poller issues long-poll requests against a channel.
type Poller struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewPoller returns a Poller. A nil client means http.DefaultClient; a
// non-positive timeout means DefaultPollTimeout.
func NewPoller(client *http.Client, timeout time.Duration) *Poller {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Poller{httpClient: client, timeout: timeout}
}

// Poll fetches whatever the server has after ch.Offset. It does not modify ch;
// the caller adopts PollResult.NewOffset.
func (p *Poller) Poll(ctx context.Context, ch Channel) (PollResult, error) {
	body, err := p.Fetch(ctx, ch)
	if err != nil {
		return PollResult{}, err
	}
	payload, err := ParseFrame(body)
	if err != nil {
		return PollResult{}, err
	}
	return Decode(payload)
}

// Fetch performs the long-poll GET and returns the raw, still framed body.
// Every failure is a *TransportError.
func (p *Poller) Fetch(ctx context.Context, ch Channel) ([]byte, error) {
	u, err := url.Parse(ch.BaseURL)
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: fmt.Errorf("parsing base url: %w", err)}
	}
	q := u.Query()
	q.Set("channel", ch.Name)
	q.Set("offset", strconv.FormatInt(ch.Offset, 10))
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain response body to allow connection reuse
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPollBody))
		return nil, &TransportError{Op: "poll", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPollBody))
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: fmt.Errorf("reading body: %w", err)}
	}
	return body, nil
}
