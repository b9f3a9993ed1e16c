package credential

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const (
	serviceName = "todo-web"

	// SigningKeyName is the keyring entry holding the session signing key.
	SigningKeyName = "session-signing-key"

	signingKeySize = 32
)

// Open returns the OS keyring for this service, falling back to an
// encrypted file under fileDir when no native backend is available.
func Open(fileDir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("todo-web-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key.
func Get(ring keyring.Keyring, key string) ([]byte, error) {
	item, err := ring.Get(key)
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", key, err)
	}
	return item.Data, nil
}

// Set stores a credential value by key.
func Set(ring keyring.Keyring, key string, value []byte) error {
	err := ring.Set(keyring.Item{
		Key:         key,
		Data:        value,
		Label:       serviceName + " " + key,
		Description: "todo-web session signing key",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key.
func Delete(ring keyring.Keyring, key string) error {
	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// SigningKey returns the session signing key stored in ring, generating and
// storing a new random key on first use.
func SigningKey(ring keyring.Keyring) ([]byte, error) {
	key, err := Get(ring, SigningKeyName)
	if err == nil && len(key) > 0 {
		return key, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, err
	}

	key, err = RandomKey()
	if err != nil {
		return nil, err
	}
	if err := Set(ring, SigningKeyName, key); err != nil {
		return nil, err
	}
	return key, nil
}

// RandomKey returns a fresh random signing key.
func RandomKey() ([]byte, error) {
	key := make([]byte, signingKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}
	return key, nil
}
