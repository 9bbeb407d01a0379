package keyring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndResolveAdminToken(t *testing.T) {
	r := NewRegistry(time.Hour)

	token := r.IssueAdminToken(Account{ID: "acc_1", Name: "Account One"})
	assert.True(t, strings.HasPrefix(token, "admin_"))

	acc, ok := r.ResolveAdminToken(token)
	require.True(t, ok)
	assert.Equal(t, "acc_1", acc.ID)
	assert.Equal(t, "Account One", acc.Name)

	_, ok = r.ResolveAdminToken("admin_bogus")
	assert.False(t, ok)

	_, ok = r.ResolveAdminToken("")
	assert.False(t, ok)
}

func TestRevokeAdminToken(t *testing.T) {
	r := NewRegistry(time.Hour)

	token := r.IssueAdminToken(Account{ID: "acc_1", Name: "Account One"})
	r.RevokeAdminToken(token)

	_, ok := r.ResolveAdminToken(token)
	assert.False(t, ok)

	// Revoking twice is fine.
	r.RevokeAdminToken(token)
	r.RevokeAdminToken("never-issued")
}

func TestAdminTokenExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	r := NewRegistry(30*time.Minute, WithClock(clock))
	token := r.IssueAdminToken(Account{ID: "acc_1", Name: "Account One"})

	_, ok := r.ResolveAdminToken(token)
	require.True(t, ok)

	now = now.Add(31 * time.Minute)
	_, ok = r.ResolveAdminToken(token)
	assert.False(t, ok)

	removed := r.SweepExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, r.SweepExpired())
}

func TestIssueProjectKeys(t *testing.T) {
	anon, service := IssueProjectKeys()

	assert.True(t, strings.HasPrefix(anon, "pk_anon_"))
	assert.True(t, strings.HasPrefix(service, "sk_service_"))
	assert.NotEqual(t, anon, service)

	anon2, service2 := IssueProjectKeys()
	assert.NotEqual(t, anon, anon2)
	assert.NotEqual(t, service, service2)
}

func TestTokensAreUnique(t *testing.T) {
	r := NewRegistry(time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := r.IssueAdminToken(Account{ID: "acc_1"})
		require.False(t, seen[token])
		seen[token] = true
	}
}
