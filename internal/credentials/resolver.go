// Package credentials resolves connection access tokens. A token is either the
// literal provider credential or a reference to a secret held in AWS Secrets Manager.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SecretRefPrefix marks an access token that names a Secrets Manager secret
const SecretRefPrefix = "aws-sm://"

// DefaultCacheTTL bounds how long a resolved secret is reused
const DefaultCacheTTL = 5 * time.Minute

var (
	// ErrSecretNotFound is returned when a referenced secret does not exist
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretEmpty is returned when a referenced secret has no usable value
	ErrSecretEmpty = errors.New("secret value is empty")

	// ErrNoSecretSource is returned when a secret reference is used but no
	// secret source was configured
	ErrNoSecretSource = errors.New("no secret source configured")
)

// Resolver turns the stored access token of a connection into the credential
// sent to the provider
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// SecretSource fetches the raw string value of a named secret
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// IsSecretRef reports whether token is a secret reference
func IsSecretRef(token string) bool {
	return strings.HasPrefix(token, SecretRefPrefix)
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// CachingResolver returns literal tokens unchanged and resolves secret
// references through a SecretSource, caching values for a TTL
type CachingResolver struct {
	source SecretSource
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewResolver creates a resolver. source may be nil, in which case secret
// references fail with ErrNoSecretSource.
func NewResolver(source SecretSource, ttl time.Duration) *CachingResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingResolver{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// Resolve implements Resolver
func (r *CachingResolver) Resolve(ctx context.Context, token string) (string, error) {
	if !IsSecretRef(token) {
		if token == "" {
			return "", ErrSecretEmpty
		}
		return token, nil
	}

	name := strings.TrimPrefix(token, SecretRefPrefix)
	if name == "" {
		return "", fmt.Errorf("invalid secret reference %q", token)
	}
	if r.source == nil {
		return "", ErrNoSecretSource
	}

	r.mu.Lock()
	entry, ok := r.cache[name]
	r.mu.Unlock()
	if ok && r.now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	raw, err := r.source.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}
	value, err := extractToken(raw)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[name] = cacheEntry{value: value, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()

	slog.Debug("Resolved access token from secret store", "secret", name)
	return value, nil
}

// Invalidate drops a cached secret so the next Resolve fetches it again
func (r *CachingResolver) Invalidate(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, strings.TrimPrefix(token, SecretRefPrefix))
}

// extractToken accepts either a bare token or a JSON document with an access_token field
func extractToken(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrSecretEmpty
	}
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	var doc struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return "", fmt.Errorf("failed to parse secret document: %w", err)
	}
	if doc.AccessToken == "" {
		return "", ErrSecretEmpty
	}
	return doc.AccessToken, nil
}
