package main

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/nhle/todo-web/internal/credential"
	"github.com/nhle/todo-web/internal/model"
)

// Where the session signing key came from.
const (
	keySourceConfig    = "config"
	keySourceKeyring   = "keyring"
	keySourceEphemeral = "ephemeral"
)

func openKeyring() (keyring.Keyring, error) {
	return credential.Open(keyringDir())
}

// resolveSigningKey picks the session signing key: the configured secret,
// then the keyring when enabled, then a random per-process key.
func resolveSigningKey(cfg model.SessionConfig, open func() (keyring.Keyring, error)) ([]byte, string, error) {
	if cfg.Secret != "" {
		return []byte(cfg.Secret), keySourceConfig, nil
	}

	if cfg.UseKeyring {
		ring, err := open()
		if err != nil {
			return nil, "", err
		}
		key, err := credential.SigningKey(ring)
		if err != nil {
			return nil, "", fmt.Errorf("loading signing key from keyring: %w", err)
		}
		return key, keySourceKeyring, nil
	}

	key, err := credential.RandomKey()
	if err != nil {
		return nil, "", err
	}
	return key, keySourceEphemeral, nil
}

// rotateSigningKey removes the keyring signing key so the next
// resolveSigningKey call generates a fresh one.
func rotateSigningKey(cfg model.SessionConfig, open func() (keyring.Keyring, error)) error {
	if !cfg.UseKeyring {
		return errors.New("rotating the signing key requires session.use_keyring")
	}
	ring, err := open()
	if err != nil {
		return err
	}
	err = credential.Delete(ring, credential.SigningKeyName)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
