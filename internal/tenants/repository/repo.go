package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kivabase/kivabase-backend/internal/storage"
	"github.com/kivabase/kivabase-backend/internal/tenants/domain"
)

const (
	projectKeyPrefix    = "project:" // project:{project_id} -> Project JSON
	accountSetKeyPrefix = "account:" // account:{account_id}:projects -> set of project ids
	accountSetKeySuffix = ":projects"
)

// Repo persists project records as JSON blobs with a per-account
// membership set for listing.
type Repo struct {
	store storage.Store
}

func NewRepo(store storage.Store) *Repo {
	return &Repo{store: store}
}

func (r *Repo) projectKey(projectID string) string {
	return projectKeyPrefix + projectID
}

func (r *Repo) accountSetKey(accountID string) string {
	return accountSetKeyPrefix + accountID + accountSetKeySuffix
}

func (r *Repo) Create(ctx context.Context, p *domain.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	if err := r.store.Put(ctx, r.projectKey(p.ID), data); err != nil {
		return fmt.Errorf("store project: %w", err)
	}
	if err := r.store.SetAdd(ctx, r.accountSetKey(p.AccountID), p.ID); err != nil {
		return fmt.Errorf("index project: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	data, err := r.store.Get(ctx, r.projectKey(projectID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	return &p, nil
}

func (r *Repo) ListByAccount(ctx context.Context, accountID string) ([]domain.Project, error) {
	ids, err := r.store.SetMembers(ctx, r.accountSetKey(accountID))
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}

	out := make([]domain.Project, 0, len(ids))
	for _, id := range ids {
		p, err := r.Get(ctx, id)
		if errors.Is(err, domain.ErrProjectNotFound) {
			// Stale index entry from an interrupted cascade; skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// Delete removes the project record and its account index entry. It is
// the last step of the cascade: once the record is gone, every child
// lookup fails with project not found.
func (r *Repo) Delete(ctx context.Context, p *domain.Project) error {
	if err := r.store.Delete(ctx, r.projectKey(p.ID)); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := r.store.SetRemove(ctx, r.accountSetKey(p.AccountID), p.ID); err != nil {
		return fmt.Errorf("unindex project: %w", err)
	}
	return nil
}
