package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kivabase/kivabase-backend/internal/authusers/domain"
	"github.com/kivabase/kivabase-backend/internal/authusers/repository"
	"github.com/kivabase/kivabase-backend/internal/storage"
)

const testSigningKey = "test-signing-key"

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(repository.NewRepo(storage.NewRedisStore(client)), testSigningKey, time.Hour)
}

func TestCreateHashesPassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	u, err := svc.Create(ctx, "p1", "ada@example.com", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotContains(t, u.PasswordHash, "hunter2")
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, "p1", "ada@example.com", "hunter2")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "p1", "ada@example.com", "other")
	assert.ErrorIs(t, err, domain.ErrUserExists)

	// Same email under another project is a different user.
	_, err = svc.Create(ctx, "p2", "ada@example.com", "other")
	assert.NoError(t, err)
}

func TestCreateRequiresCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, "p1", "", "hunter2")
	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)

	_, err = svc.Create(ctx, "p1", "ada@example.com", "")
	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, _, err := svc.Signup(ctx, "p1", "ada@example.com", "hunter2")
	require.NoError(t, err)

	u, token, err := svc.Login(ctx, "p1", "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.NotEmpty(t, token)

	claims := SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(testSigningKey), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, "p1", claims.ProjectID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, _, err := svc.Signup(ctx, "p1", "ada@example.com", "hunter2")
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(ctx, "p1", "ada@example.com", "nope")
	_, _, wrongEmail := svc.Login(ctx, "p1", "nobody@example.com", "hunter2")
	_, _, wrongProject := svc.Login(ctx, "p2", "ada@example.com", "hunter2")

	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongEmail, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongProject, domain.ErrInvalidCredentials)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	u, err := svc.Create(ctx, "p1", "ada@example.com", "hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "p1", u.ID))

	err = svc.Delete(ctx, "p1", u.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	users, err := svc.List(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestPurgeProject(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Create(ctx, "p1", "ada@example.com", "hunter2")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "p1", "grace@example.com", "hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.PurgeProject(ctx, "p1"))
	require.NoError(t, svc.PurgeProject(ctx, "p1"))

	users, err := svc.List(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, users)

	// A purged email is free for reuse.
	_, err = svc.Create(ctx, "p1", "ada@example.com", "again")
	assert.NoError(t, err)
}
