package adapters

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource mirrors oauth2.TokenSource; split out so tests can supply a
// fake without wiring a real token endpoint.
type TokenSource interface {
	Token() (*oauth2.Token, error)
}

// OAuth2Adapter wraps RESTAdapter with token acquisition and a single
// refresh-and-retry on an upstream 401 (spec §4.6).
type OAuth2Adapter struct {
	rest   *RESTAdapter
	config clientcredentials.Config
}

// NewOAuth2Adapter constructs an OAuth2Adapter for the client_credentials
// grant. metadata carries token_url and scopes from the credential's
// non-secret metadata; secret is the client secret.
func NewOAuth2Adapter(tokenURL, clientID string, scopes []string) *OAuth2Adapter {
	return &OAuth2Adapter{
		rest: NewRESTAdapter("BEARER"),
		config: clientcredentials.Config{
			ClientID: clientID,
			TokenURL: tokenURL,
			Scopes:   scopes,
		},
	}
}

func (a *OAuth2Adapter) Name() string { return "oauth2" }

func (a *OAuth2Adapter) Invoke(ctx context.Context, req Request) (Response, error) {
	cfg := a.config
	cfg.ClientSecret = string(req.Secret)

	tok, err := cfg.Token(ctx)
	if err != nil {
		return Response{}, err
	}

	resp, err := a.rest.invokeWithToken(ctx, req, tok.AccessToken)
	if err != nil {
		return Response{}, err
	}
	if resp.HTTPStatus != http.StatusUnauthorized {
		return resp, nil
	}

	// One refresh-and-retry on 401, per spec §4.6.
	src := cfg.TokenSource(ctx)
	refreshed, err := src.Token()
	if err != nil {
		return resp, nil // surface the original 401, refresh itself failed
	}
	retryResp, err := a.rest.invokeWithToken(ctx, req, refreshed.AccessToken)
	if err != nil {
		return Response{}, err
	}
	retryResp.Refreshed = true
	return retryResp, nil
}

// invokeWithToken performs one REST call authenticated with a bearer token,
// bypassing the credential-secret plumbing RESTAdapter normally does for
// static API keys.
func (a *RESTAdapter) invokeWithToken(ctx context.Context, req Request, accessToken string) (Response, error) {
	req.Secret = []byte(accessToken)
	return a.Invoke(ctx, req)
}
