package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://www.plurk.com"

const (
	pathMe            = "/APP/Users/me"
	pathGetPlurks     = "/APP/Polling/getPlurks"
	pathPublicProfile = "/APP/Profile/getPublicProfile"
)

// Client interface for testability
type Client interface {
	Request(ctx context.Context, path string) (*http.Response, error)
	RequestWithQuery(ctx context.Context, path string, params url.Values) (*http.Response, error)
	Me(ctx context.Context) (*User, error)
	GetPlurks(ctx context.Context, since time.Time) (*Timeline, error)
	GetPublicProfile(ctx context.Context, userID int64) (*Profile, error)
}

var _ Client = (*HTTPClient)(nil)

// Credentials are the OAuth1 consumer and access token pairs.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	TokenKey       string
	TokenSecret    string
}

type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewClient(baseURL string, creds Credentials, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		MaxIdleConns:    100,
		MaxConnsPerHost: 10,
		IdleConnTimeout: 90 * time.Second,
	}
	base := &http.Client{Transport: gzhttp.Transport(transport)}

	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.TokenKey, creds.TokenSecret)
	signed := config.Client(context.WithValue(context.Background(), oauth1.HTTPClient, base), token)
	signed.Timeout = timeout

	if ratePerSec < 1 {
		ratePerSec = 1
	}

	return &HTTPClient{
		httpClient: signed,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Request sends a signed POST with no parameters. Any response, including a
// non-2xx one, is returned to the caller; the error is only set when the
// request could not be completed.
func (c *HTTPClient) Request(ctx context.Context, path string) (*http.Response, error) {
	return c.RequestWithQuery(ctx, path, nil)
}

// RequestWithQuery sends a signed POST with params as a form body.
func (c *HTTPClient) RequestWithQuery(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	c.logger.Debug("requesting", zap.String("path", path))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

func (c *HTTPClient) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, pathMe, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetPlurks fetches the timeline of plurks posted after since.
func (c *HTTPClient) GetPlurks(ctx context.Context, since time.Time) (*Timeline, error) {
	params := url.Values{"offset": {since.UTC().Format("2006-01-02T15:04:05Z")}}
	var tl Timeline
	if err := c.call(ctx, pathGetPlurks, params, &tl); err != nil {
		return nil, err
	}
	return &tl, nil
}

func (c *HTTPClient) GetPublicProfile(ctx context.Context, userID int64) (*Profile, error) {
	params := url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
	var profile Profile
	if err := c.call(ctx, pathPublicProfile, params, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// call performs a request with retries and decodes the JSON reply into out.
// Transport failures, 429 and 5xx replies are retried with exponential
// backoff; any other non-2xx reply is returned as a *StatusError.
func (c *HTTPClient) call(ctx context.Context, path string, params url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.String("path", path), zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.RequestWithQuery(ctx, path, params)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			lastErr = err
			continue
		}

		// Read body before closing for error messages
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = statusError(resp.StatusCode, body)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return statusError(resp.StatusCode, body)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func statusError(code int, body []byte) *StatusError {
	se := &StatusError{StatusCode: code}
	if json.Unmarshal(body, se) != nil || se.Message == "" {
		se.Message = strings.TrimSpace(string(body))
	}
	return se
}
