package toolbroker

import (
	"fmt"

	"github.com/openintent-ai/openintent/pkg/toolbroker/adapters"
)

// Registry holds the adapters dispatchable by auth type, following the
// provider-registry pattern used elsewhere in this codebase for pluggable
// external integrations.
type Registry struct {
	byAuthType map[string]adapters.Adapter
}

// NewRegistry constructs a Registry pre-populated with the built-in adapters
// for the API_KEY, BEARER, BASIC and WEBHOOK auth types (spec §4.6). No
// OAUTH2 adapter is registered until RegisterOAuth2 is called.
func NewRegistry() *Registry {
	r := &Registry{byAuthType: make(map[string]adapters.Adapter)}
	r.Register(AuthAPIKey, adapters.NewRESTAdapter("API_KEY"))
	r.Register(AuthBearer, adapters.NewRESTAdapter("BEARER"))
	r.Register(AuthBasic, adapters.NewRESTAdapter("BASIC"))
	r.Register(AuthWebhook, adapters.NewWebhookAdapter())
	return r
}

// Register binds an adapter to an auth type, overriding any built-in.
func (r *Registry) Register(authType string, a adapters.Adapter) {
	r.byAuthType[authType] = a
}

// RegisterOAuth2 binds a per-credential OAuth2 adapter; unlike the other
// built-ins, the token endpoint/client id vary per credential so these are
// constructed lazily by the caller rather than once at registry init.
func (r *Registry) RegisterOAuth2(a *adapters.OAuth2Adapter) {
	r.byAuthType[AuthOAuth2] = a
}

// Get resolves the adapter for authType.
func (r *Registry) Get(authType string) (adapters.Adapter, error) {
	a, ok := r.byAuthType[authType]
	if !ok {
		return nil, fmt.Errorf("toolbroker: no adapter registered for auth type %q", authType)
	}
	return a, nil
}
