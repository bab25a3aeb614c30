package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

var testCreds = Credentials{
	ConsumerKey:    "consumer",
	ConsumerSecret: "consumer-secret",
	TokenKey:       "token",
	TokenSecret:    "token-secret",
}

func TestMe_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify the request is a signed POST
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/APP/Users/me" {
			t.Errorf("expected path /APP/Users/me, got %s", r.URL.Path)
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "OAuth ") {
			t.Errorf("expected OAuth authorization header, got %q", auth)
		}
		if !strings.Contains(auth, `oauth_consumer_key="consumer"`) {
			t.Errorf("expected consumer key in header, got %q", auth)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":           42,
			"nick_name":    "dephilia",
			"display_name": "Dephilia",
			"karma":        100.5,
		})
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, testCreds, 10, 30*time.Second, time.Millisecond, 0, logger)

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 42 || user.Name() != "Dephilia" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestGetPlurks_SendsOffset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("offset"); got != "2022-01-02T03:04:05Z" {
			t.Errorf("expected offset 2022-01-02T03:04:05Z, got %q", got)
		}
		w.Write([]byte(`{
			"plurks": [{"plurk_id": 7, "owner_id": 3, "posted": "Sun, 02 Jan 2022 03:04:05 GMT", "content_raw": "hi", "qualifier": "says"}],
			"plurk_users": {"3": {"id": 3, "display_name": "Three"}}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testCreds, 10, 30*time.Second, time.Millisecond, 0, zap.NewNop())

	since := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
	tl, err := client.GetPlurks(context.Background(), since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tl.Plurks) != 1 {
		t.Fatalf("expected 1 plurk, got %d", len(tl.Plurks))
	}
	p := tl.Plurks[0]
	if !p.Posted.Equal(since) {
		t.Errorf("expected posted %v, got %v", since, p.Posted.Time)
	}
	owner, ok := tl.Owner(p)
	if !ok || owner.DisplayName != "Three" {
		t.Errorf("expected owner Three, got %+v (found=%v)", owner, ok)
	}
}

func TestGetPublicProfile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error_text": "User not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testCreds, 10, 30*time.Second, time.Millisecond, 2, zap.NewNop())

	_, err := client.GetPublicProfile(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Message != "User not found" {
		t.Errorf("expected StatusError with server message, got %v", err)
	}
}

func TestMe_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, testCreds, 10, 30*time.Second, time.Millisecond, 2, zap.NewNop())

	_, err := client.Me(context.Background())
	if err == nil {
		t.Fatal("expected error for server failures")
	}

	// Should have attempted 3 times (initial + 2 retries)
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRequest_ReturnsNonSuccessResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, testCreds, 10, 30*time.Second, time.Millisecond, 0, zap.NewNop())

	resp, err := client.Request(context.Background(), "/APP/Realtime/getUserChannel")
	if err != nil {
		t.Fatalf("HTTP-level failure must not be a transport error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRequest_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, testCreds, 10, time.Second, time.Millisecond, 0, zap.NewNop())

	if _, err := client.Request(context.Background(), "/APP/Users/me"); err == nil {
		t.Fatal("expected transport error against a closed server")
	}
}

func TestTime_UnmarshalJSON(t *testing.T) {
	var v struct {
		Posted Time  `json:"posted"`
		Edited *Time `json:"edited"`
	}
	if err := json.Unmarshal([]byte(`{"posted": "Fri, 05 Jun 2009 23:07:13 GMT", "edited": null}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2009, 6, 5, 23, 7, 13, 0, time.UTC)
	if !v.Posted.Equal(want) {
		t.Errorf("expected %v, got %v", want, v.Posted.Time)
	}
	if v.Edited != nil {
		t.Errorf("expected nil edited, got %v", v.Edited)
	}

	if err := json.Unmarshal([]byte(`{"posted": "2009-06-05"}`), &v); err == nil {
		t.Error("expected error for non RFC 1123 timestamp")
	}
}
