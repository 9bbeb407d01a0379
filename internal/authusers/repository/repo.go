package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kivabase/kivabase-backend/internal/authusers/domain"
	"github.com/kivabase/kivabase-backend/internal/storage"
)

// Repo persists auth users as JSON blobs with a per-project membership
// set and an email index for uniqueness and login lookups.
type Repo struct {
	store storage.Store
}

func NewRepo(store storage.Store) *Repo {
	return &Repo{store: store}
}

func (r *Repo) userKey(projectID, userID string) string {
	return "authuser:" + projectID + ":" + userID
}

func (r *Repo) usersSetKey(projectID string) string {
	return "project:" + projectID + ":authusers"
}

func (r *Repo) emailKey(projectID, email string) string {
	return "authemail:" + projectID + ":" + email
}

func (r *Repo) Create(ctx context.Context, u *domain.AuthUser) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	if err := r.store.Put(ctx, r.userKey(u.ProjectID, u.ID), data); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	if err := r.store.SetAdd(ctx, r.usersSetKey(u.ProjectID), u.ID); err != nil {
		return fmt.Errorf("index user: %w", err)
	}
	if err := r.store.Put(ctx, r.emailKey(u.ProjectID, u.Email), []byte(u.ID)); err != nil {
		return fmt.Errorf("index user email: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, projectID, userID string) (*domain.AuthUser, error) {
	data, err := r.store.Get(ctx, r.userKey(projectID, userID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var u domain.AuthUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, projectID, email string) (*domain.AuthUser, error) {
	data, err := r.store.Get(ctx, r.emailKey(projectID, email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user email: %w", err)
	}
	return r.Get(ctx, projectID, string(data))
}

func (r *Repo) ListByProject(ctx context.Context, projectID string) ([]domain.AuthUser, error) {
	ids, err := r.store.SetMembers(ctx, r.usersSetKey(projectID))
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}

	out := make([]domain.AuthUser, 0, len(ids))
	for _, id := range ids {
		u, err := r.Get(ctx, projectID, id)
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, u *domain.AuthUser) error {
	if err := r.store.Delete(ctx, r.emailKey(u.ProjectID, u.Email)); err != nil {
		return fmt.Errorf("unindex user email: %w", err)
	}
	if err := r.store.SetRemove(ctx, r.usersSetKey(u.ProjectID), u.ID); err != nil {
		return fmt.Errorf("unindex user: %w", err)
	}
	if err := r.store.Delete(ctx, r.userKey(u.ProjectID, u.ID)); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// PurgeProject removes every auth user in the project. Safe to re-run.
func (r *Repo) PurgeProject(ctx context.Context, projectID string) error {
	ids, err := r.store.SetMembers(ctx, r.usersSetKey(projectID))
	if err != nil {
		return fmt.Errorf("purge users: %w", err)
	}

	for _, id := range ids {
		u, err := r.Get(ctx, projectID, id)
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = r.store.SetRemove(ctx, r.usersSetKey(projectID), id)
			continue
		}
		if err != nil {
			return err
		}
		if err := r.Delete(ctx, u); err != nil {
			return err
		}
	}

	return r.store.Delete(ctx, r.usersSetKey(projectID))
}
