package adapters

import (
	"encoding/json"
	"net/url"
	"testing"
)

func TestBuildRequestQueryAndBodyMapping(t *testing.T) {
	a := NewRESTAdapter("API_KEY")
	req := Request{
		Endpoint: Endpoint{
			Method:       "POST",
			BaseURL:      "https://api.example.com/v1",
			Path:         "/widgets",
			ParamMapping: map[string]string{"limit": "query"},
		},
		Parameters: map[string]any{
			"limit": 10,
			"name":  "gadget",
		},
	}

	method, rawURL, body, err := a.buildRequest(req)
	if err != nil {
		t.Fatalf("buildRequest returned error: %v", err)
	}
	if method != "POST" {
		t.Errorf("method = %s, want POST", method)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("invalid url %q: %v", rawURL, err)
	}
	if u.Query().Get("limit") != "10" {
		t.Errorf("expected limit query param, got %q", u.RawQuery)
	}
	if u.Path != "/v1/widgets" {
		t.Errorf("unexpected path: %s", u.Path)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("body not valid json: %v", err)
	}
	if decoded["name"] != "gadget" {
		t.Errorf("expected name in body, got %+v", decoded)
	}
	if _, ok := decoded["limit"]; ok {
		t.Error("query-mapped param should not also appear in the body")
	}
}

func TestBuildRequestGetHasNoBody(t *testing.T) {
	a := NewRESTAdapter("")
	req := Request{
		Endpoint: Endpoint{
			Method:  "GET",
			BaseURL: "https://api.example.com",
			Path:    "status",
		},
		Parameters: map[string]any{"verbose": true},
	}

	_, _, body, err := a.buildRequest(req)
	if err != nil {
		t.Fatalf("buildRequest returned error: %v", err)
	}
	if body != nil {
		t.Errorf("expected no body for GET request, got %s", body)
	}
}

func TestBuildRequestAuthInQuery(t *testing.T) {
	a := NewRESTAdapter("API_KEY")
	req := Request{
		Endpoint: Endpoint{
			Method:       "GET",
			BaseURL:      "https://api.example.com",
			Path:         "/search",
			AuthLocation: "query",
			AuthParam:    "token",
		},
		Secret: []byte("shh"),
	}

	_, rawURL, _, err := a.buildRequest(req)
	if err != nil {
		t.Fatalf("buildRequest returned error: %v", err)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("invalid url %q: %v", rawURL, err)
	}
	if u.Query().Get("token") != "shh" {
		t.Errorf("expected token query param to carry the secret, got %q", u.RawQuery)
	}
}

func TestAuthHeader(t *testing.T) {
	cases := []struct {
		authType  string
		wantKey   string
		wantValue string
	}{
		{"BEARER", "Authorization", "Bearer tok"},
		{"BASIC", "Authorization", "Basic tok"},
		{"API_KEY", "X-API-Key", "tok"},
		{"WEBHOOK", "", ""},
	}
	for _, tc := range cases {
		a := NewRESTAdapter(tc.authType)
		k, v := a.authHeader([]byte("tok"))
		if k != tc.wantKey || v != tc.wantValue {
			t.Errorf("authHeader(%s) = (%q, %q), want (%q, %q)", tc.authType, k, v, tc.wantKey, tc.wantValue)
		}
	}
}
