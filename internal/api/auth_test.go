package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthorizer_PinFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		switch r.URL.Path {
		case pathRequestToken:
			if !strings.Contains(auth, `oauth_callback="oob"`) {
				t.Errorf("expected oob callback, got %q", auth)
			}
			w.Write([]byte("oauth_token=req&oauth_token_secret=req-secret&oauth_callback_confirmed=true"))
		case pathAccessToken:
			if !strings.Contains(auth, `oauth_verifier="123456"`) {
				t.Errorf("expected trimmed pin as verifier, got %q", auth)
			}
			if !strings.Contains(auth, `oauth_token="req"`) {
				t.Errorf("expected request token, got %q", auth)
			}
			w.Write([]byte("oauth_token=access&oauth_token_secret=access-secret"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	a := NewAuthorizer(server.URL+"/", "consumer", "consumer-secret")

	token, secret, authorizeURL, err := a.RequestToken()
	if err != nil {
		t.Fatalf("RequestToken failed: %v", err)
	}
	if token != "req" || secret != "req-secret" {
		t.Errorf("unexpected request token %q/%q", token, secret)
	}
	if want := server.URL + pathAuthorize + "?oauth_token=req"; authorizeURL != want {
		t.Errorf("expected authorize url %s, got %s", want, authorizeURL)
	}

	token, secret, err = a.AccessToken(token, secret, " 123456\n")
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if token != "access" || secret != "access-secret" {
		t.Errorf("unexpected access token %q/%q", token, secret)
	}
}

func TestAuthorizer_RequestTokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid consumer", http.StatusUnauthorized)
	}))
	defer server.Close()

	a := NewAuthorizer(server.URL, "bad", "bad")
	if _, _, _, err := a.RequestToken(); err == nil {
		t.Fatal("expected an error for a rejected consumer key")
	}
}

func TestPermalink(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{35, "https://www.plurk.com/p/z"},
		{36, "https://www.plurk.com/p/10"},
		{1234567890, "https://www.plurk.com/p/kf12oi"},
	}
	for _, tt := range tests {
		if got := (Plurk{PlurkID: tt.id}).Permalink(); got != tt.want {
			t.Errorf("Permalink(%d) = %s, want %s", tt.id, got, tt.want)
		}
	}
}
