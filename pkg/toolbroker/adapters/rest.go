package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openintent-ai/openintent/pkg/toolbroker/security"
)

const toolbrokerUserAgent = "openintent-toolbroker/1"

// RESTAdapter composes a URL from Endpoint.BaseURL+Path, injects credential
// material per auth.location, and maps parameters to query/body per
// endpoint.param_mapping (spec §4.6).
type RESTAdapter struct {
	authType string // AuthAPIKey | AuthBearer | AuthBasic, or "" for unauthenticated
}

// NewRESTAdapter constructs a RESTAdapter for the given credential auth type.
func NewRESTAdapter(authType string) *RESTAdapter {
	return &RESTAdapter{authType: authType}
}

func (a *RESTAdapter) Name() string { return "rest" }

func (a *RESTAdapter) Invoke(ctx context.Context, req Request) (Response, error) {
	method, rawURL, body, err := a.buildRequest(req)
	if err != nil {
		return Response{}, err
	}
	if err := security.ValidateURL(rawURL, nil); err != nil {
		return Response{}, err
	}
	if err := security.ValidateResolvedIP(rawURL); err != nil {
		return Response{}, err
	}
	headers := map[string]string{}
	if a.authType != "" && req.Endpoint.AuthLocation != "query" {
		if k, v := a.authHeader(req.Secret); k != "" {
			headers[k] = v
		}
	}
	return doHTTP(ctx, method, rawURL, headers, body, req.Timeout)
}

func (a *RESTAdapter) buildRequest(req Request) (method, rawURL string, body []byte, err error) {
	ep := req.Endpoint
	method = ep.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(strings.TrimRight(ep.BaseURL, "/") + "/" + strings.TrimLeft(ep.Path, "/"))
	if err != nil {
		return "", "", nil, fmt.Errorf("building request url: %w", err)
	}

	query := u.Query()
	bodyFields := map[string]any{}
	for k, v := range req.Parameters {
		dest := ep.ParamMapping[k]
		switch dest {
		case "query":
			query.Set(k, fmt.Sprint(v))
		default:
			bodyFields[k] = v
		}
	}

	if a.authType != "" && ep.AuthLocation == "query" {
		query.Set(valueOr(ep.AuthParam, "api_key"), string(req.Secret))
	}
	u.RawQuery = query.Encode()

	if method == http.MethodGet || method == http.MethodDelete || len(bodyFields) == 0 {
		return method, u.String(), nil, nil
	}
	payload, err := json.Marshal(bodyFields)
	if err != nil {
		return "", "", nil, fmt.Errorf("marshaling request body: %w", err)
	}
	return method, u.String(), payload, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// authHeader builds the header-location credential for the given auth type.
func (a *RESTAdapter) authHeader(secret []byte) (string, string) {
	switch a.authType {
	case "BEARER":
		return "Authorization", "Bearer " + string(secret)
	case "BASIC":
		return "Authorization", "Basic " + string(secret)
	case "API_KEY":
		return "X-API-Key", string(secret)
	default:
		return "", ""
	}
}

// doHTTP performs the outbound call under the security contract of spec
// §4.6: no redirects followed, response capped at security.MaxResponseBytes
// (imported indirectly via io.LimitReader below), timeout clamped.
func doHTTP(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, timeoutMs int64) (Response, error) {
	client := &http.Client{
		Timeout: time.Duration(timeoutMs) * time.Millisecond,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return Response{}, fmt.Errorf("building http request: %w", err)
	}
	httpReq.Header.Set("User-Agent", toolbrokerUserAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{}, err
		}
		return Response{}, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, security.MaxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return Response{}, fmt.Errorf("reading response body: %w", err)
	}
	if len(respBody) > security.MaxResponseBytes {
		return Response{}, &security.ErrResponseTooLarge{}
	}

	return Response{HTTPStatus: resp.StatusCode, Body: respBody}, nil
}
