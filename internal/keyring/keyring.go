// Package keyring owns capability token material: revocable admin
// session tokens held in process memory, and the anon/service API key
// pair embedded in every project record.
package keyring

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	adminTokenPrefix = "admin_"
	// Key prefixes let an operator classify a leaked key at a glance.
	// They carry no authorization meaning: a key only grants access by
	// exact match against the owning project's stored keys.
	anonKeyPrefix    = "pk_anon_"
	serviceKeyPrefix = "sk_service_"
)

// Account identifies the administrator a session token was issued to.
type Account struct {
	ID   string
	Name string
}

type binding struct {
	account   Account
	expiresAt time.Time
}

// Registry holds admin token bindings. Tokens are not persisted and do
// not survive a process restart.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]binding
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Registry)

// WithClock substitutes the time source, so tests drive expiry
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{
		tokens: make(map[string]binding),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IssueAdminToken generates an opaque token and binds it to the account.
func (r *Registry) IssueAdminToken(account Account) string {
	token := adminTokenPrefix + randomSuffix()

	r.mu.Lock()
	r.tokens[token] = binding{account: account, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()

	return token
}

// ResolveAdminToken looks up the account bound to token. Expired or
// unknown tokens resolve as absent.
func (r *Registry) ResolveAdminToken(token string) (Account, bool) {
	if token == "" {
		return Account{}, false
	}

	r.mu.RLock()
	b, ok := r.tokens[token]
	r.mu.RUnlock()

	if !ok || r.now().After(b.expiresAt) {
		return Account{}, false
	}
	return b.account, true
}

// RevokeAdminToken removes the binding. Revoking an absent token is a
// no-op.
func (r *Registry) RevokeAdminToken(token string) {
	r.mu.Lock()
	delete(r.tokens, token)
	r.mu.Unlock()
}

// SweepExpired drops expired bindings and reports how many were removed.
// Resolution already treats expired tokens as absent; the sweep only
// reclaims memory and is run from the cron scheduler.
func (r *Registry) SweepExpired() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, b := range r.tokens {
		if now.After(b.expiresAt) {
			delete(r.tokens, token)
			removed++
		}
	}
	return removed
}

// IssueProjectKeys generates a fresh anon/service key pair.
func IssueProjectKeys() (anonKey, serviceKey string) {
	return anonKeyPrefix + randomSuffix(), serviceKeyPrefix + randomSuffix()
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
