package adapters

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openintent-ai/openintent/pkg/toolbroker/security"
)

// WebhookAdapter POSTs a JSON envelope to Endpoint.BaseURL+Path, signing the
// body with HMAC-SHA256 when a signing secret is present (spec §4.6).
type WebhookAdapter struct{}

func NewWebhookAdapter() *WebhookAdapter { return &WebhookAdapter{} }

func (a *WebhookAdapter) Name() string { return "webhook" }

func (a *WebhookAdapter) Invoke(ctx context.Context, req Request) (Response, error) {
	envelope := map[string]any{
		"tool_name":  req.ToolName,
		"parameters": req.Parameters,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling webhook envelope: %w", err)
	}

	rawURL := req.Endpoint.BaseURL + req.Endpoint.Path
	if err := security.ValidateURL(rawURL, nil); err != nil {
		return Response{}, err
	}
	if err := security.ValidateResolvedIP(rawURL); err != nil {
		return Response{}, err
	}

	headers := map[string]string{}
	if len(req.Secret) > 0 {
		headers["X-OpenIntent-Signature"] = "sha256=" + signHMAC(req.Secret, body)
	}

	return doHTTP(ctx, "POST", rawURL, headers, body, req.Timeout)
}

func signHMAC(key, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
