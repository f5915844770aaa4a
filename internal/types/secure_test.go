package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestSecretString_StringIsRedacted(t *testing.T) {
	s := SecretString("whsec_super_secret")
	if s.String() != "***REDACTED***" {
		t.Errorf("String() leaked: %q", s.String())
	}
	if out := fmt.Sprintf("secret=%v", s); strings.Contains(out, "whsec_super_secret") {
		t.Errorf("fmt leaked the secret: %q", out)
	}
}

func TestSecretString_MarshalJSONIsRedacted(t *testing.T) {
	payload := struct {
		Key SecretString `json:"key"`
	}{Key: "SG.api-key"}

	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "SG.api-key") {
		t.Errorf("JSON leaked the secret: %s", out)
	}
	if !strings.Contains(string(out), "***REDACTED***") {
		t.Errorf("expected the placeholder, got %s", out)
	}
}

func TestSecretString_Unmask(t *testing.T) {
	s := SecretString("whsec_value")
	if s.Unmask() != "whsec_value" {
		t.Errorf("Unmask() = %q", s.Unmask())
	}
}

func TestResolvedSecret_IsSet(t *testing.T) {
	cases := []struct {
		name   string
		secret ResolvedSecret
		want   bool
	}{
		{"db value", ResolvedSecret{Source: SecretSourceDB, Value: "whsec_1"}, true},
		{"env value", ResolvedSecret{Source: SecretSourceEnv, Value: "whsec_2"}, true},
		{"none", ResolvedSecret{Source: SecretSourceNone}, false},
		{"source without value", ResolvedSecret{Source: SecretSourceDB}, false},
	}
	for _, tc := range cases {
		if got := tc.secret.IsSet(); got != tc.want {
			t.Errorf("%s: IsSet() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
