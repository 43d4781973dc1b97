package secretstore

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestResolveLiteralValuePassesThrough(t *testing.T) {
	keyring.MockInit()
	s := New()

	got, err := s.Resolve("plain-token")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "plain-token" {
		t.Errorf("Resolve() = %q, want %q", got, "plain-token")
	}
}

func TestResolveKeyringReferenceFetchesStoredValue(t *testing.T) {
	keyring.MockInit()
	s := New()

	if err := s.Set("svc-account", "super-secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := s.Resolve(Prefix + "svc-account")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "super-secret" {
		t.Errorf("Resolve() = %q, want %q", got, "super-secret")
	}
}

func TestResolveMissingAccountReturnsError(t *testing.T) {
	keyring.MockInit()
	s := New()

	if _, err := s.Resolve(Prefix + "missing"); err == nil {
		t.Fatal("expected error for missing keychain account")
	}
}
