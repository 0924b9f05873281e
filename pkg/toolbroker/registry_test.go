package toolbroker

import (
	"testing"

	"github.com/openintent-ai/openintent/pkg/toolbroker/adapters"
)

func TestNewRegistryHasBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, authType := range []string{AuthAPIKey, AuthBearer, AuthBasic, AuthWebhook} {
		a, err := r.Get(authType)
		if err != nil {
			t.Errorf("expected a built-in adapter for %s, got error: %v", authType, err)
		}
		if a == nil {
			t.Errorf("expected non-nil adapter for %s", authType)
		}
	}
}

func TestRegistryGetUnknownAuthType(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("NOT_A_REAL_TYPE"); err == nil {
		t.Error("expected an error for an unregistered auth type")
	}
}

func TestRegistryRegisterOverridesBuiltin(t *testing.T) {
	r := NewRegistry()
	custom := adapters.NewRESTAdapter("BEARER")
	r.Register(AuthAPIKey, custom)

	got, err := r.Get(AuthAPIKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != adapters.Adapter(custom) {
		t.Error("expected Register to override the built-in adapter")
	}
}

func TestRegisterOAuth2(t *testing.T) {
	r := NewRegistry()
	oauth := adapters.NewOAuth2Adapter("https://auth.example.com/token", "client-id", []string{"scope"})
	r.RegisterOAuth2(oauth)

	got, err := r.Get(AuthOAuth2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name() != "oauth2" {
		t.Errorf("expected oauth2 adapter, got %s", got.Name())
	}
}
