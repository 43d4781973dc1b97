// Package secretstore resolves "keyring:<account>" references against
// the OS credential store, so catalog service configs never need a
// bearer token written to disk in plaintext.
package secretstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const service = "oatty"

// Prefix is the scheme a ServiceConfig.BearerToken value must start
// with for Resolve to treat it as a keyring reference rather than a
// literal token.
const Prefix = "keyring:"

// Store reads and writes bearer tokens in the system keychain
// (macOS Keychain, Secret Service on Linux, Credential Manager on
// Windows).
type Store struct {
	available bool
}

// New probes the keychain once and records whether it is reachable,
// so callers can fail fast instead of timing out per lookup.
func New() *Store {
	s := &Store{available: true}
	_, err := keyring.Get(service, "__oatty_availability_test__")
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.available = false
	}
	return s
}

// Available reports whether the keychain backend responded during New.
func (s *Store) Available() bool {
	return s.available
}

// Set stores token under account.
func (s *Store) Set(account, token string) error {
	if err := keyring.Set(service, account, token); err != nil {
		return fmt.Errorf("secretstore: storing %q: %w", account, err)
	}
	return nil
}

// Get retrieves the token stored under account.
func (s *Store) Get(account string) (string, error) {
	token, err := keyring.Get(service, account)
	if err != nil {
		return "", fmt.Errorf("secretstore: retrieving %q: %w", account, err)
	}
	return token, nil
}

// Resolve expands value when it is a "keyring:<account>" reference,
// and returns it unchanged otherwise. This lets a catalog's
// service_id auth config name a keychain account instead of carrying
// a literal bearer token.
func (s *Store) Resolve(value string) (string, error) {
	account, ok := strings.CutPrefix(value, Prefix)
	if !ok {
		return value, nil
	}
	return s.Get(account)
}
