// Package credential persists the OAuth1 key material in a TOML file.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/dgnsrekt/plurk-comet/internal/api"
)

// KeyPair is a key and its secret.
type KeyPair struct {
	Key    string `toml:"key"`
	Secret string `toml:"secret"`
}

// Keys is the on-disk layout of the key file.
type Keys struct {
	Consumer   KeyPair  `toml:"consumer"`
	OAuthToken *KeyPair `toml:"oauth_token,omitempty"`
}

// DefaultPath returns <user config dir>/plurk-cli/key.toml, falling back to
// the working directory when no config dir is known.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "plurk-cli", "key.toml")
}

// Load reads and parses a key file.
func Load(path string) (*Keys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("key file %s not found (run 'plurk login' to create one): %w", path, err)
		}
		return nil, fmt.Errorf("cannot read key file: %w", err)
	}
	var keys Keys
	if err := toml.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("cannot parse key file %s: %w", path, err)
	}
	if keys.Consumer.Key == "" || keys.Consumer.Secret == "" {
		return nil, fmt.Errorf("key file %s: consumer key and secret are required", path)
	}
	return &keys, nil
}

// Save writes the key file with owner-only permissions, creating the parent
// directory if needed.
func (k *Keys) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create key directory: %w", err)
	}
	data, err := toml.Marshal(k)
	if err != nil {
		return fmt.Errorf("cannot marshal keys: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write key file: %w", err)
	}
	return nil
}

// HasToken reports whether a complete access token is present.
func (k *Keys) HasToken() bool {
	return k.OAuthToken != nil && k.OAuthToken.Key != "" && k.OAuthToken.Secret != ""
}

// SetToken stores an access token pair.
func (k *Keys) SetToken(key, secret string) {
	k.OAuthToken = &KeyPair{Key: key, Secret: secret}
}

// Credentials converts the keys for the API client. A partial token is
// dropped so requests are signed with the consumer pair only.
func (k *Keys) Credentials() api.Credentials {
	creds := api.Credentials{
		ConsumerKey:    k.Consumer.Key,
		ConsumerSecret: k.Consumer.Secret,
	}
	if k.HasToken() {
		creds.TokenKey = k.OAuthToken.Key
		creds.TokenSecret = k.OAuthToken.Secret
	}
	return creds
}
