package comet

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// stubRequester answers every request with a fixed status and body.
type stubRequester struct {
	status int
	body   string
	err    error
	paths  []string
}

func (s *stubRequester) Request(ctx context.Context, path string) (*http.Response, error) {
	return s.RequestWithQuery(ctx, path, nil)
}

func (s *stubRequester) RequestWithQuery(_ context.Context, path string, _ url.Values) (*http.Response, error) {
	s.paths = append(s.paths, path)
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

func TestNegotiate_Success(t *testing.T) {
	req := &stubRequester{
		status: http.StatusOK,
		body: `{"channel_name": "generic-4-f733d8522327edf87b4d1651e6395a6cca0807a0",
			"comet_server": "https://comet03.plurk.com/comet/1235515351741/?channel=generic-4-f733d8522327edf87b4d1651e6395a6cca0807a0&offset=0"}`,
	}

	ch, err := Negotiate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.paths) != 1 || req.paths[0] != PathUserChannel {
		t.Errorf("expected one request to %s, got %v", PathUserChannel, req.paths)
	}
	if ch.Name != "generic-4-f733d8522327edf87b4d1651e6395a6cca0807a0" {
		t.Errorf("unexpected channel name %q", ch.Name)
	}
	if ch.Offset != 0 {
		t.Errorf("expected offset 0, got %d", ch.Offset)
	}
	if ch.BaseURL != "https://comet03.plurk.com/comet/1235515351741/comet" {
		t.Errorf("unexpected base URL %q", ch.BaseURL)
	}
}

func TestParseCometServer(t *testing.T) {
	ch, err := ParseCometServer("http://127.0.0.1:8080/comet/1/?channel=abc%20def&offset=17")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Name != "abc def" || ch.Offset != 17 {
		t.Errorf("unexpected channel: %+v", ch)
	}
	if ch.BaseURL != "http://127.0.0.1:8080/comet/1/comet" {
		t.Errorf("unexpected base URL %q", ch.BaseURL)
	}

	ch, err = ParseCometServer("https://comet.plurk.com/?offset=-1&channel=x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.BaseURL != "https://comet.plurk.com/comet" || ch.Offset != -1 {
		t.Errorf("unexpected channel: %+v", ch)
	}
}

func TestParseCometServer_Failures(t *testing.T) {
	urls := map[string]string{
		"no query":       "https://comet.plurk.com/comet/1/",
		"no channel":     "https://comet.plurk.com/comet/1/?offset=3",
		"no offset":      "https://comet.plurk.com/comet/1/?channel=abc",
		"bad offset":     "https://comet.plurk.com/comet/1/?channel=abc&offset=ten",
		"relative":       "/comet/1/?channel=abc&offset=0",
		"unparsable":     "https://comet.plurk.com/%zz?channel=abc&offset=0",
		"bad query":      "https://comet.plurk.com/?channel=%zz&offset=0",
		"overflowoffset": "https://comet.plurk.com/?channel=a&offset=99999999999999999999",
	}

	for name, raw := range urls {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCometServer(raw)
			var ne *NegotiationError
			if !errors.As(err, &ne) {
				t.Fatalf("expected NegotiationError, got %v", err)
			}
			if IsTransient(err) {
				t.Error("negotiation errors must not be transient")
			}
		})
	}
}

func TestNegotiate_Failures(t *testing.T) {
	transportErr := errors.New("connection refused")
	cases := map[string]*stubRequester{
		"transport":       {err: transportErr},
		"status":          {status: http.StatusBadRequest, body: `{"error_text": "invalid access token"}`},
		"malformed json":  {status: http.StatusOK, body: `{"comet_server": `},
		"missing server":  {status: http.StatusOK, body: `{"channel_name": "x"}`},
		"server no query": {status: http.StatusOK, body: `{"comet_server": "https://comet.plurk.com/comet/1/"}`},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Negotiate(context.Background(), req)
			var ne *NegotiationError
			if !errors.As(err, &ne) {
				t.Fatalf("expected NegotiationError, got %v", err)
			}
		})
	}

	_, err := Negotiate(context.Background(), cases["transport"])
	if !errors.Is(err, transportErr) {
		t.Errorf("expected transport error to be wrapped, got %v", err)
	}
}
