package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "jobminer"
	apiKeyAccount  = "api_key"
)

// ErrNotFound is returned when no API key is stored in the keychain.
var ErrNotFound = errors.New("api key not found in keychain")

// GetAPIKey reads the text-generation API key from the OS keychain.
func GetAPIKey() (string, error) {
	key, err := keyring.Get(KeyringService, apiKeyAccount)
	if err != nil || strings.TrimSpace(key) == "" {
		return "", ErrNotFound
	}
	return key, nil
}

// SetAPIKey stores key in the OS keychain, replacing any previous value.
func SetAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("api key is empty")
	}
	return keyring.Set(KeyringService, apiKeyAccount, strings.TrimSpace(key))
}

// DeleteAPIKey removes the stored key.
func DeleteAPIKey() error {
	return keyring.Delete(KeyringService, apiKeyAccount)
}
