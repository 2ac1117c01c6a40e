// Package oauthutil provides OAuth utilities.
package oauthutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/config/configmap"
	"github.com/rclone/drivedup/fs/fserrors"
	"github.com/rclone/drivedup/fs/fshttp"
	"golang.org/x/oauth2"
)

// Config keys used by OAuth backends
const (
	ConfigClientID     = "client_id"
	ConfigClientSecret = "client_secret"
	ConfigToken        = "token"
	ConfigAuthURL      = "auth_url"
	ConfigTokenURL     = "token_url"
)

// SharedOptions are shared between backends the utilize an OAuth flow
var SharedOptions = []fs.Option{{
	Name: ConfigClientID,
	Help: "OAuth Client Id.\n\nLeave blank normally.",
}, {
	Name: ConfigClientSecret,
	Help: "OAuth Client Secret.\n\nLeave blank normally.",
}, {
	Name:     ConfigToken,
	Help:     "OAuth Access Token as a JSON blob.",
	Advanced: true,
}, {
	Name:     ConfigAuthURL,
	Help:     "Auth server URL.\n\nLeave blank to use the provider defaults.",
	Advanced: true,
}, {
	Name:     ConfigTokenURL,
	Help:     "Token server url.\n\nLeave blank to use the provider defaults.",
	Advanced: true,
}}

// tokenRetryDelay is the pause between failed token refreshes
var tokenRetryDelay = time.Second

// GetToken returns the token saved in the config under name
func GetToken(name string, m configmap.Mapper) (*oauth2.Token, error) {
	tokenString, ok := m.Get(ConfigToken)
	if !ok || tokenString == "" {
		return nil, errors.Errorf("empty token found - please run \"rclone authorize %q\" and paste the result into the [%s] section of the config file", "drive", name)
	}
	token := new(oauth2.Token)
	if err := json.Unmarshal([]byte(tokenString), token); err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}
	return token, nil
}

// PutToken stores the token in the config if it has changed
func PutToken(name string, m configmap.Mapper, token *oauth2.Token) error {
	tokenBytes, err := json.Marshal(token)
	if err != nil {
		return err
	}
	tokenString := string(tokenBytes)
	old, ok := m.Get(ConfigToken)
	if !ok || tokenString != old {
		m.Set(ConfigToken, tokenString)
		fs.Debugf(name, "Saved new token in config file")
	}
	return nil
}

// TokenSource stores updated tokens in the config file
type TokenSource struct {
	mu          sync.Mutex
	name        string
	m           configmap.Mapper
	tokenSource oauth2.TokenSource
	token       *oauth2.Token
	config      *oauth2.Config
	ctx         context.Context
}

// reReadToken reads the token from the config in case another
// process has refreshed it. It returns whether the token changed.
//
// Call with the lock held
func (ts *TokenSource) reReadToken() (changed bool) {
	newToken, err := GetToken(ts.name, ts.m)
	if err != nil {
		fs.Debugf(ts.name, "Failed to read token out of config file: %v", err)
		return false
	}
	if newToken.Valid() {
		fs.Debugf(ts.name, "Loaded fresh token from config file")
		changed = true
	}
	if newToken.RefreshToken != "" && newToken.RefreshToken != ts.token.RefreshToken {
		fs.Debugf(ts.name, "Loaded new refresh token from config file")
		changed = true
	}
	if changed {
		ts.token = newToken
		ts.tokenSource = nil
	}
	return changed
}

type retrieveErrResponse struct {
	Error string `json:"error"`
}

// maybeWrapOAuthError turns the refresh errors which retrying won't
// fix into a fatal error with a suggestion. Other errors are returned
// unchanged.
func maybeWrapOAuthError(err error, name string) error {
	rErr, ok := err.(*oauth2.RetrieveError)
	if !ok || rErr.Response == nil {
		return err
	}
	if rErr.Response.StatusCode != http.StatusBadRequest && rErr.Response.StatusCode != http.StatusUnauthorized {
		return err
	}
	fs.Debugf(name, "got fatal oauth error: %v", rErr)
	var resp retrieveErrResponse
	if jsonErr := json.Unmarshal(rErr.Body, &resp); jsonErr != nil {
		return fserrors.FatalError(errors.New("can't decode oauth error info - try getting a new token"))
	}
	suggestion := "maybe token expired? - try getting a new token"
	switch resp.Error {
	case "invalid_client", "unauthorized_client", "unsupported_grant_type", "invalid_scope":
		suggestion = "if you're using your own client id/secret, make sure they're properly set up"
	}
	return fserrors.FatalError(fmt.Errorf("%s: %s", resp.Error, suggestion))
}

// Token returns a token or an error.
// Token must be safe for concurrent use by multiple goroutines.
// The returned Token must not be modified.
//
// This saves the token in the config file if it has changed
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var (
		token   *oauth2.Token
		err     error
		changed = false
	)
	const maxTries = 5

	for i := 1; i <= maxTries; i++ {
		if !ts.token.Valid() {
			if ts.reReadToken() {
				changed = true
			} else if ts.token.RefreshToken == "" {
				return nil, fserrors.FatalError(errors.New("token expired and there's no refresh token - get a new token"))
			}
		}
		if ts.tokenSource == nil {
			ts.tokenSource = ts.config.TokenSource(ts.ctx, ts.token)
		}
		token, err = ts.tokenSource.Token()
		if err == nil {
			break
		}
		if newErr := maybeWrapOAuthError(err, ts.name); newErr != err {
			err = newErr
			break
		}
		fs.Debugf(ts.name, "Token refresh failed try %d/%d: %v", i, maxTries, err)
		time.Sleep(tokenRetryDelay)
	}
	if err != nil {
		return nil, errors.Wrap(err, "couldn't fetch token")
	}
	changed = changed || token.AccessToken != ts.token.AccessToken || token.RefreshToken != ts.token.RefreshToken || !token.Expiry.Equal(ts.token.Expiry)
	ts.token = token
	if changed {
		if err = PutToken(ts.name, ts.m, token); err != nil {
			return nil, errors.Wrap(err, "couldn't store token")
		}
	}
	return token, nil
}

// Invalidate invalidates the token so the next call to Token
// refreshes it
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.token.AccessToken = ""
	ts.token.Expiry = time.Now().Add(-time.Hour)
	ts.tokenSource = nil
	ts.mu.Unlock()
}

// Check interface satisfied
var _ oauth2.TokenSource = (*TokenSource)(nil)

// Context returns a context with our HTTP Client baked in for oauth2
func Context(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// overrideCredentials sets the ClientID, ClientSecret and endpoints
// from the config if they are not blank. origConfig is copied.
func overrideCredentials(m configmap.Mapper, origConfig *oauth2.Config) (newConfig *oauth2.Config) {
	newConfig = new(oauth2.Config)
	*newConfig = *origConfig
	if clientID, ok := m.Get(ConfigClientID); ok && clientID != "" {
		newConfig.ClientID = clientID
		// a new id needs its own secret
		newConfig.ClientSecret = ""
	}
	if clientSecret, ok := m.Get(ConfigClientSecret); ok && clientSecret != "" {
		newConfig.ClientSecret = clientSecret
	}
	if authURL, ok := m.Get(ConfigAuthURL); ok && authURL != "" {
		newConfig.Endpoint.AuthURL = authURL
	}
	if tokenURL, ok := m.Get(ConfigTokenURL); ok && tokenURL != "" {
		newConfig.Endpoint.TokenURL = tokenURL
	}
	return newConfig
}

// NewClientWithBaseClient gets a token from the config and
// configures a Client with it. It returns the client and a
// TokenSource which Invalidate may need to be called on. It uses the
// httpClient passed in as the base client.
func NewClientWithBaseClient(ctx context.Context, name string, m configmap.Mapper, oauthConfig *oauth2.Config, baseClient *http.Client) (*http.Client, *TokenSource, error) {
	oauthConfig = overrideCredentials(m, oauthConfig)
	token, err := GetToken(name, m)
	if err != nil {
		return nil, nil, err
	}
	ctx = Context(ctx, baseClient)
	ts := &TokenSource{
		name:   name,
		m:      m,
		token:  token,
		config: oauthConfig,
		ctx:    ctx,
	}
	return oauth2.NewClient(ctx, ts), ts, nil
}

// NewClient gets a token from the config and configures a Client
// with it on top of the drivedup HTTP transport
func NewClient(ctx context.Context, name string, m configmap.Mapper, oauthConfig *oauth2.Config) (*http.Client, *TokenSource, error) {
	return NewClientWithBaseClient(ctx, name, m, oauthConfig, fshttp.NewClient(ctx))
}
