package app

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

const sessionKeyLength = 32

// LoadSessionKey loads the HMAC key used to sign session cookies, generating
// and persisting a fresh one on first run. Losing the key invalidates every
// outstanding cookie, so it lives on disk next to the pepper.
func LoadSessionKey(path string) ([]byte, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("prepare session key directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		key := make([]byte, sessionKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		if err := os.WriteFile(path, key, 0600); err != nil {
			return nil, fmt.Errorf("write session key: %w", err)
		}
		return key, nil
	}

	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session key: %w", err)
	}
	if len(key) < sessionKeyLength {
		return nil, fmt.Errorf("session key at %s is too short (%d bytes)", path, len(key))
	}
	return key, nil
}
