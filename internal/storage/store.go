// Package storage persists serialized record collections under namespaced keys.
//
// Every adapter stores opaque JSON blobs; decoding and corruption handling
// live one level up in the repository package.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Collection names one of the persisted record sets.
type Collection string

const (
	Incomes       Collection = "incomes"
	Donations     Collection = "donations"
	Beneficiaries Collection = "beneficiaries"
)

const keyPrefix = "tzedakah_"

// ErrInvalidKey is returned for keys that cannot be stored safely.
var ErrInvalidKey = errors.New("invalid storage key")

// Store is the blob port every backend implements.
type Store interface {
	// Load returns (nil, nil) when nothing is stored under key.
	Load(ctx context.Context, key Key) ([]byte, error)
	Save(ctx context.Context, key Key, data []byte) error
}

// Key addresses one collection of one scope.
type Key struct {
	Collection Collection
	Scope      string
}

// String renders the legacy key, e.g. "tzedakah_incomes" or "tzedakah_incomes_<scope>".
func (k Key) String() string {
	if k.Scope == "" {
		return keyPrefix + string(k.Collection)
	}
	return keyPrefix + string(k.Collection) + "_" + k.Scope
}

// Validate rejects unknown collections and scopes that would escape a path or prefix.
func (k Key) Validate() error {
	switch k.Collection {
	case Incomes, Donations, Beneficiaries:
	default:
		return fmt.Errorf("%w: unknown collection %q", ErrInvalidKey, k.Collection)
	}
	if strings.ContainsAny(k.Scope, "/\\") || strings.Contains(k.Scope, "..") {
		return fmt.Errorf("%w: scope %q", ErrInvalidKey, k.Scope)
	}
	return nil
}

// KeysFor returns the three collection keys of a scope.
func KeysFor(scope string) []Key {
	return []Key{
		{Collection: Incomes, Scope: scope},
		{Collection: Donations, Scope: scope},
		{Collection: Beneficiaries, Scope: scope},
	}
}
