package config

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups this tool's secrets in the OS keychain
const KeyringService = "job-digest"

// KeychainLookup resolves secret options from the OS keychain. Non-secret keys and
// keychain errors (no keychain, entry missing) report ok=false.
func KeychainLookup() Lookup {
	return func(key string) (string, bool) {
		if !IsSecretKey(key) {
			return "", false
		}
		v, err := keyring.Get(KeyringService, key)
		if err != nil || strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	}
}

// SetSecret stores a secret option in the OS keychain
func SetSecret(key, value string) error {
	if !IsSecretKey(key) {
		return errors.New("not a secret option: " + key)
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, key, value)
}

// DeleteSecret removes a secret option from the OS keychain
func DeleteSecret(key string) error {
	if !IsSecretKey(key) {
		return errors.New("not a secret option: " + key)
	}
	return keyring.Delete(KeyringService, key)
}
