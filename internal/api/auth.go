package api

import (
	"fmt"
	"strings"

	"github.com/dghubble/oauth1"
)

const (
	pathRequestToken = "/OAuth/request_token"
	pathAuthorize    = "/OAuth/authorize"
	pathAccessToken  = "/OAuth/access_token"
)

// Authorizer runs the out-of-band (PIN) OAuth1 flow that turns a consumer
// key pair into an access token pair.
type Authorizer struct {
	config *oauth1.Config
}

func NewAuthorizer(baseURL, consumerKey, consumerSecret string) *Authorizer {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Authorizer{
		config: &oauth1.Config{
			ConsumerKey:    consumerKey,
			ConsumerSecret: consumerSecret,
			CallbackURL:    "oob",
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: baseURL + pathRequestToken,
				AuthorizeURL:    baseURL + pathAuthorize,
				AccessTokenURL:  baseURL + pathAccessToken,
			},
		},
	}
}

// RequestToken obtains a temporary request token and the URL the user has to
// open to get a verification PIN.
func (a *Authorizer) RequestToken() (token, secret, authorizeURL string, err error) {
	token, secret, err = a.config.RequestToken()
	if err != nil {
		return "", "", "", fmt.Errorf("request token: %w", err)
	}
	u, err := a.config.AuthorizationURL(token)
	if err != nil {
		return "", "", "", fmt.Errorf("authorization url: %w", err)
	}
	return token, secret, u.String(), nil
}

// AccessToken exchanges the request token and the user's PIN for an access
// token pair.
func (a *Authorizer) AccessToken(requestToken, requestSecret, pin string) (token, secret string, err error) {
	token, secret, err = a.config.AccessToken(requestToken, requestSecret, strings.TrimSpace(pin))
	if err != nil {
		return "", "", fmt.Errorf("access token: %w", err)
	}
	return token, secret, nil
}
