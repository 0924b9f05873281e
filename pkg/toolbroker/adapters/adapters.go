// Package adapters implements the built-in tool-execution adapters dispatched
// by the broker's registry (spec §4.6): REST (API-key/Bearer/Basic), OAuth2,
// and Webhook.
package adapters

import (
	"context"
)

// Request is what the broker hands to an adapter after grant and URL
// validation have passed.
type Request struct {
	ToolName   string
	Endpoint   Endpoint
	Parameters map[string]any
	Secret     []byte
	Timeout    int64 // milliseconds, already clamped
}

// Endpoint mirrors toolbroker.Endpoint without importing the parent package,
// avoiding an import cycle between toolbroker and adapters.
type Endpoint struct {
	Method       string
	BaseURL      string
	Path         string
	AuthLocation string
	AuthParam    string
	ParamMapping map[string]string
	SigningKey   string
}

// Response is the raw outcome before sanitization/envelope assembly.
type Response struct {
	HTTPStatus int
	Body       []byte
	Refreshed  bool
}

// Adapter dispatches one tool call to an external system.
type Adapter interface {
	// Name identifies the adapter for registry lookup ("rest", "oauth2", "webhook").
	Name() string
	Invoke(ctx context.Context, req Request) (Response, error)
}
