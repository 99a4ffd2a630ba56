// Package auth implements API-key authentication (spec.md §6: "API keys
// are stored as (prefix, salted-hash, permissions, rateLimit). Validation
// is prefix-lookup then hash-verify. Permissions for /check require
// read.") and a per-key token-bucket rate limiter.
//
// Grounded on Togather-Foundation-server/internal/auth/apikey.go for the
// dual bcrypt/legacy-SHA256 hash-version scheme, adapted to read the
// X-API-Key header instead of a bearer token and to carry a Permissions
// set instead of a single role string.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/verdefield/agrocheck/internal/model"
)

const (
	HashVersionSHA256 = 1 // legacy, migration-only
	HashVersionBcrypt = 2

	// BcryptCost is the work factor for newly issued keys.
	BcryptCost = 12

	// PrefixLength is the number of leading characters of a raw key stored
	// unhashed for O(1) lookup before the constant-time hash comparison.
	PrefixLength = 8

	// PermissionRead is required to call POST /check.
	PermissionRead = "read"
)

// APIKey is a row from the auth table.
type APIKey struct {
	ID           string
	Prefix       string
	Hash         string
	HashVersion  int
	Name         string
	Permissions  []string
	RateLimitRPM int
	IsActive     bool
	ExpiresAt    *time.Time
}

// HasPermission reports whether the key carries the given permission.
func (k *APIKey) HasPermission(perm string) bool {
	for _, p := range k.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Store is the data-access boundary for API keys, implemented against the
// auth table owned by this service (spec.md §6).
type Store interface {
	LookupByPrefix(ctx context.Context, prefix string) (*APIKey, error)
	UpdateLastUsed(ctx context.Context, id string) error
}

// KeyFromRequest extracts the raw API key from the X-API-Key header.
func KeyFromRequest(r *http.Request) (string, error) {
	if r == nil {
		return "", &model.AuthError{Message: "missing API key"}
	}
	key := r.Header.Get("X-API-Key")
	if key == "" {
		return "", &model.AuthError{Message: "missing API key"}
	}
	return key, nil
}

// Validate performs prefix-lookup then hash-verify (spec.md §6), checking
// activation, expiry, and the required permission. It returns an
// *model.AuthError for every failure mode to keep the caller's error
// handling uniform.
func Validate(ctx context.Context, store Store, rawKey string, requiredPermission string) (*APIKey, error) {
	if store == nil {
		return nil, &model.AuthError{Message: "auth store not configured"}
	}
	if len(rawKey) < PrefixLength {
		return nil, &model.AuthError{Message: "invalid API key"}
	}

	prefix := rawKey[:PrefixLength]
	stored, err := store.LookupByPrefix(ctx, prefix)
	if err != nil || stored == nil {
		return nil, &model.AuthError{Message: "invalid API key"}
	}
	if !stored.IsActive {
		return nil, &model.AuthError{Message: "API key is inactive"}
	}
	if stored.ExpiresAt != nil && stored.ExpiresAt.Before(time.Now()) {
		return nil, &model.AuthError{Message: "API key has expired"}
	}

	if !verifyHash(stored, rawKey) {
		return nil, &model.AuthError{Message: "invalid API key"}
	}

	if requiredPermission != "" && !stored.HasPermission(requiredPermission) {
		return nil, &model.AuthError{Message: "API key lacks required permission: " + requiredPermission}
	}

	_ = store.UpdateLastUsed(ctx, stored.ID)
	return stored, nil
}

func verifyHash(stored *APIKey, rawKey string) bool {
	switch stored.HashVersion {
	case HashVersionSHA256:
		provided := HashKeySHA256(rawKey)
		return subtle.ConstantTimeCompare([]byte(provided), []byte(stored.Hash)) == 1
	case HashVersionBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(stored.Hash), []byte(rawKey)) == nil
	default:
		return false
	}
}

// HashKey generates a bcrypt hash for a newly issued key.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HashKeySHA256 generates the legacy hash, kept only to validate keys
// issued before the bcrypt migration.
func HashKeySHA256(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
