package secret

import (
	"os/exec"
	"strings"
)

const keychainService = "dsjson"

// KeychainStore implements SecretStore using the macOS Keychain
// via the `security` CLI tool.
type KeychainStore struct {
	service string
}

// NewKeychainStore creates a new KeychainStore.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: keychainService}
}

// Get retrieves a secret from the macOS Keychain. The account is the Key.
// Returns empty slice and nil error if the key doesn't exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	cmd := exec.Command("security", "find-generic-password",
		"-a", key,
		"-s", k.service,
		"-w", // output only the password
	)
	out, err := cmd.Output()
	if err != nil {
		// exit code 44 is "not found"; anything else is treated the same
		return nil, nil
	}
	return []byte(strings.TrimSpace(string(out))), nil
}
