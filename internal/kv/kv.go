// Package kv provides synchronous key-value backends that play the part of
// browser local storage: a string value per string key, last writer wins.
package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidKey is returned for keys outside the allowed character set.
var ErrInvalidKey = errors.New("kv: invalid key")

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Backend is a key-value store.
type Backend interface {
	// GetItem returns the value stored under key and whether it exists.
	GetItem(ctx context.Context, key string) (string, bool, error)
	// SetItem overwrites the value stored under key.
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// Drivers.
const (
	DriverSQLite = "sqlite"
	DriverFS     = "fs"
	DriverMemory = "memory"
)

// Open returns the backend for driver rooted at path.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverFS:
		return NewFS(path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", driver)
	}
}

// CheckKey returns ErrInvalidKey when key cannot be used with every backend.
func CheckKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
