package comet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// PathUserChannel is the API call that hands out a comet channel.
const PathUserChannel = "/APP/Realtime/getUserChannel"

// Requester issues signed API calls. It returns the response whatever its
// status; the error is reserved for requests that could not be completed.
type Requester interface {
	Request(ctx context.Context, path string) (*http.Response, error)
	RequestWithQuery(ctx context.Context, path string, params url.Values) (*http.Response, error)
}

// Channel is the negotiated push channel and the cursor into it. Only Offset
// changes after negotiation, and only to a value the server sent.
type Channel struct {
	BaseURL string
	Name    string
	Offset  int64
}

func (c Channel) String() string {
	return fmt.Sprintf("channel %s at %s (offset %d)", c.Name, c.BaseURL, c.Offset)
}

type userChannel struct {
	CometServer string `json:"comet_server"`
	ChannelName string `json:"channel_name"`
}

// Negotiate asks the API for the user's channel. Every failure comes back as
// a *NegotiationError.
func Negotiate(ctx context.Context, req Requester) (*Channel, error) {
	resp, err := req.Request(ctx, PathUserChannel)
	if err != nil {
		return nil, &NegotiationError{Reason: "requesting user channel", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NegotiationError{Reason: "reading user channel", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NegotiationError{Reason: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(string(body)))}
	}

	var uc userChannel
	if err := json.Unmarshal(body, &uc); err != nil {
		return nil, &NegotiationError{Reason: "decoding user channel", Err: err}
	}
	if uc.CometServer == "" {
		return nil, &NegotiationError{Reason: "response has no comet_server"}
	}
	return ParseCometServer(uc.CometServer)
}

// ParseCometServer builds a Channel from the comet_server URL. Its query
// string carries channel and offset; the poll endpoint is "comet" resolved
// against the URL.
func ParseCometServer(raw string) (*Channel, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &NegotiationError{Reason: "parsing comet_server", Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &NegotiationError{Reason: fmt.Sprintf("comet_server %q is not an absolute URL", raw)}
	}
	if u.RawQuery == "" {
		return nil, &NegotiationError{Reason: fmt.Sprintf("comet_server %q has no query", raw)}
	}

	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, &NegotiationError{Reason: "parsing comet_server query", Err: err}
	}
	name := q.Get("channel")
	if name == "" {
		return nil, &NegotiationError{Reason: "comet_server query has no channel"}
	}
	if !q.Has("offset") {
		return nil, &NegotiationError{Reason: "comet_server query has no offset"}
	}
	offset, err := strconv.ParseInt(q.Get("offset"), 10, 64)
	if err != nil {
		return nil, &NegotiationError{Reason: "parsing comet_server offset", Err: err}
	}

	base := u.ResolveReference(&url.URL{Path: "comet"})
	base.RawQuery = ""
	base.Fragment = ""

	return &Channel{
		BaseURL: base.String(),
		Name:    name,
		Offset:  offset,
	}, nil
}
