package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kivabase/kivabase-backend/internal/storage"
	"github.com/kivabase/kivabase-backend/internal/tables/domain"
)

// Repo persists each table (schema plus rows) as one JSON blob, with a
// per-project membership set and a name index. The single-blob layout
// is what makes every schema migration an atomic snapshot swap: one
// Put replaces columns and rows together.
type Repo struct {
	store storage.Store
}

func NewRepo(store storage.Store) *Repo {
	return &Repo{store: store}
}

func (r *Repo) tableKey(projectID, tableID string) string {
	return "table:" + projectID + ":" + tableID // table:{project_id}:{table_id} -> Table JSON
}

func (r *Repo) tablesSetKey(projectID string) string {
	return "project:" + projectID + ":tables" // set of table ids
}

func (r *Repo) nameKey(projectID, name string) string {
	return "tablename:" + projectID + ":" + name // table name -> table id
}

func (r *Repo) Create(ctx context.Context, t *domain.Table) error {
	if err := r.Put(ctx, t); err != nil {
		return err
	}
	if err := r.store.SetAdd(ctx, r.tablesSetKey(t.ProjectID), t.ID); err != nil {
		return fmt.Errorf("index table: %w", err)
	}
	if err := r.store.Put(ctx, r.nameKey(t.ProjectID, t.Name), []byte(t.ID)); err != nil {
		return fmt.Errorf("index table name: %w", err)
	}
	return nil
}

// Put writes the full table blob. Mutating operations always go
// through this after recomputing the complete state under the table
// lock.
func (r *Repo) Put(ctx context.Context, t *domain.Table) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal table: %w", err)
	}
	if err := r.store.Put(ctx, r.tableKey(t.ProjectID, t.ID), data); err != nil {
		return fmt.Errorf("store table: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, projectID, tableID string) (*domain.Table, error) {
	data, err := r.store.Get(ctx, r.tableKey(projectID, tableID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}

	var t domain.Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal table: %w", err)
	}
	return &t, nil
}

// IDByName resolves a table name to its id within a project.
func (r *Repo) IDByName(ctx context.Context, projectID, name string) (string, error) {
	data, err := r.store.Get(ctx, r.nameKey(projectID, name))
	if errors.Is(err, storage.ErrNotFound) {
		return "", domain.ErrTableNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve table name: %w", err)
	}
	return string(data), nil
}

func (r *Repo) GetByName(ctx context.Context, projectID, name string) (*domain.Table, error) {
	id, err := r.IDByName(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, projectID, id)
}

func (r *Repo) ListByProject(ctx context.Context, projectID string) ([]domain.Table, error) {
	ids, err := r.store.SetMembers(ctx, r.tablesSetKey(projectID))
	if err != nil {
		return nil, fmt.Errorf("list table ids: %w", err)
	}

	out := make([]domain.Table, 0, len(ids))
	for _, id := range ids {
		t, err := r.Get(ctx, projectID, id)
		if errors.Is(err, domain.ErrTableNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, t *domain.Table) error {
	if err := r.store.Delete(ctx, r.nameKey(t.ProjectID, t.Name)); err != nil {
		return fmt.Errorf("unindex table name: %w", err)
	}
	if err := r.store.SetRemove(ctx, r.tablesSetKey(t.ProjectID), t.ID); err != nil {
		return fmt.Errorf("unindex table: %w", err)
	}
	if err := r.store.Delete(ctx, r.tableKey(t.ProjectID, t.ID)); err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	return nil
}

// PurgeProject removes every table in the project. Safe to re-run.
func (r *Repo) PurgeProject(ctx context.Context, projectID string) error {
	ids, err := r.store.SetMembers(ctx, r.tablesSetKey(projectID))
	if err != nil {
		return fmt.Errorf("purge tables: %w", err)
	}

	for _, id := range ids {
		t, err := r.Get(ctx, projectID, id)
		if errors.Is(err, domain.ErrTableNotFound) {
			_ = r.store.SetRemove(ctx, r.tablesSetKey(projectID), id)
			continue
		}
		if err != nil {
			return err
		}
		if err := r.Delete(ctx, t); err != nil {
			return err
		}
	}

	return r.store.Delete(ctx, r.tablesSetKey(projectID))
}
