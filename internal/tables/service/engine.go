// Package service implements the schema-flexible table engine. All
// mutating operations on one table are serialized by a per-table lock
// and committed as a single blob write, so concurrent readers observe
// either the previous or the next snapshot and never a half-applied
// migration.
package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/kivabase/kivabase-backend/internal/apperr"
	"github.com/kivabase/kivabase-backend/internal/tables/domain"
	"github.com/kivabase/kivabase-backend/internal/tables/repository"
)

// Change-event names pushed to realtime subscribers.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ProjectResolver reports whether the parent project still exists. The
// engine consults it on every operation; the project record is the
// single source of truth and is never cached here.
type ProjectResolver interface {
	Exists(ctx context.Context, projectID string) (bool, error)
}

// ChangePublisher receives row-level change events after a mutation has
// committed. Delivery is best-effort; the engine never blocks on it.
type ChangePublisher interface {
	Publish(projectID, table, event string, record any)
}

type Engine struct {
	repo     *repository.Repo
	projects ProjectResolver
	bus      ChangePublisher
	locks    lockMap
}

func NewEngine(repo *repository.Repo, projects ProjectResolver, bus ChangePublisher) *Engine {
	return &Engine{repo: repo, projects: projects, bus: bus}
}

func (e *Engine) checkProject(ctx context.Context, projectID string) error {
	ok, err := e.projects.Exists(ctx, projectID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "check project", err)
	}
	if !ok {
		return apperr.New(apperr.NotFound, "project not found")
	}
	return nil
}

// mutate runs fn on the latest table state under the table's lock and
// commits the result as one blob write. The lock covers only the
// re-read, the in-memory rewrite and the store write; publishing and
// any other slow work happen outside it.
func (e *Engine) mutate(ctx context.Context, projectID, tableID string, fn func(*domain.Table) error) (*domain.Table, error) {
	if err := e.checkProject(ctx, projectID); err != nil {
		return nil, err
	}

	unlock := e.locks.lock(projectID + "/" + tableID)
	defer unlock()

	t, err := e.repo.Get(ctx, projectID, tableID)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := e.repo.Put(ctx, t); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "persist table", err)
	}
	return t, nil
}

func (e *Engine) CreateTable(ctx context.Context, projectID, name string) (*domain.Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrTableName
	}
	if err := e.checkProject(ctx, projectID); err != nil {
		return nil, err
	}

	// Serialize creates per (project, name) so two racing callers
	// cannot both claim the name.
	unlock := e.locks.lock(projectID + "/name/" + name)
	defer unlock()

	if _, err := e.repo.IDByName(ctx, projectID, name); err == nil {
		return nil, domain.ErrTableExists
	} else if !errors.Is(err, domain.ErrTableNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "check table name", err)
	}

	t := domain.New(projectID, name)
	if err := e.repo.Create(ctx, t); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create table", err)
	}
	return t, nil
}

func (e *Engine) ListTables(ctx context.Context, projectID string) ([]domain.Table, error) {
	if err := e.checkProject(ctx, projectID); err != nil {
		return nil, err
	}
	out, err := e.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list tables", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (e *Engine) GetTable(ctx context.Context, projectID, tableID string) (*domain.Table, error) {
	if err := e.checkProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.repo.Get(ctx, projectID, tableID)
}

func (e *Engine) GetTableByName(ctx context.Context, projectID, name string) (*domain.Table, error) {
	if err := e.checkProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.repo.GetByName(ctx, projectID, name)
}

// DropTable removes the table and all its rows irrevocably.
func (e *Engine) DropTable(ctx context.Context, projectID, name string) error {
	if err := e.checkProject(ctx, projectID); err != nil {
		return err
	}

	id, err := e.repo.IDByName(ctx, projectID, name)
	if err != nil {
		return err
	}

	unlock := e.locks.lock(projectID + "/" + id)
	defer unlock()

	t, err := e.repo.Get(ctx, projectID, id)
	if err != nil {
		return err
	}
	if err := e.repo.Delete(ctx, t); err != nil {
		return apperr.Wrap(apperr.Internal, "drop table", err)
	}
	return nil
}

// AddColumn appends a column definition. Existing rows are left
// without the key; no backfill value is invented.
func (e *Engine) AddColumn(ctx context.Context, projectID, tableID, name, columnType string) (*domain.Table, error) {
	name = strings.TrimSpace(name)
	columnType = strings.TrimSpace(columnType)
	if name == "" || columnType == "" {
		return nil, domain.ErrColumnSpec
	}

	return e.mutate(ctx, projectID, tableID, func(t *domain.Table) error {
		if t.ColumnIndex(name) >= 0 {
			return domain.ErrColumnExists
		}
		t.Columns = append(t.Columns, domain.Column{Name: name, Type: columnType})
		return nil
	})
}

// AlterColumn renames and/or retypes a column in place. A rename also
// moves the key in every row that has it, all under the table lock, so
// the migration is all-or-nothing.
func (e *Engine) AlterColumn(ctx context.Context, projectID, tableID, oldName, newName, newType string) (*domain.Table, error) {
	newName = strings.TrimSpace(newName)
	newType = strings.TrimSpace(newType)

	return e.mutate(ctx, projectID, tableID, func(t *domain.Table) error {
		idx := t.ColumnIndex(oldName)
		if idx < 0 {
			return domain.ErrColumnNotFound
		}
		if t.Columns[idx].Primary {
			return domain.ErrPrimaryColumn
		}
		if newName != "" && newName != oldName && t.ColumnIndex(newName) >= 0 {
			return domain.ErrColumnExists
		}

		if newName != "" {
			t.Columns[idx].Name = newName
		}
		if newType != "" {
			t.Columns[idx].Type = newType
		}

		if newName != "" && newName != oldName {
			for _, row := range t.Rows {
				row.RenameKey(oldName, newName)
			}
		}
		return nil
	})
}

// DeleteColumn removes the definition and the key from every row.
func (e *Engine) DeleteColumn(ctx context.Context, projectID, tableID, name string) (*domain.Table, error) {
	return e.mutate(ctx, projectID, tableID, func(t *domain.Table) error {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return domain.ErrColumnNotFound
		}
		if t.Columns[idx].Primary {
			return domain.ErrPrimaryColumn
		}

		t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
		for _, row := range t.Rows {
			row.DeleteKey(name)
		}
		return nil
	})
}

// InsertRow appends a row. The engine is authoritative for the primary
// key: a caller-supplied id is overwritten with a fresh uuid.
func (e *Engine) InsertRow(ctx context.Context, projectID, tableID string, fields domain.Row) (domain.Row, error) {
	row := fields.Clone()
	if row == nil {
		row = domain.Row{}
	}
	row[domain.PrimaryColumn] = uuid.NewString()

	t, err := e.mutate(ctx, projectID, tableID, func(t *domain.Table) error {
		t.Rows = append(t.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(t, EventInsert, row)
	return row, nil
}

// UpdateRow shallow-merges patch over the row. A patch cannot alter
// the primary key; that field is ignored rather than rejected.
func (e *Engine) UpdateRow(ctx context.Context, projectID, tableID, rowID string, patch domain.Row) (domain.Row, error) {
	var updated domain.Row

	t, err := e.mutate(ctx, projectID, tableID, func(t *domain.Table) error {
		idx := t.RowIndex(rowID)
		if idx < 0 {
			return domain.ErrRowNotFound
		}
		row := t.Rows[idx].Clone()
		row.Merge(patch)
		t.Rows[idx] = row
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(t, EventUpdate, updated)
	return updated, nil
}

func (e *Engine) DeleteRow(ctx context.Context, projectID, tableID, rowID string) error {
	var removed domain.Row

	t, err := e.mutate(ctx, projectID, tableID, func(t *domain.Table) error {
		idx := t.RowIndex(rowID)
		if idx < 0 {
			return domain.ErrRowNotFound
		}
		removed = t.Rows[idx]
		t.Rows = append(t.Rows[:idx], t.Rows[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	e.publish(t, EventDelete, removed)
	return nil
}

// ListRows returns rows in insertion order. limit <= 0 means no limit;
// offset past the end yields an empty slice.
func (e *Engine) ListRows(ctx context.Context, projectID, tableID string, limit, offset int) ([]domain.Row, error) {
	t, err := e.GetTable(ctx, projectID, tableID)
	if err != nil {
		return nil, err
	}
	return pageRows(t.Rows, limit, offset), nil
}

func pageRows(rows []domain.Row, limit, offset int) []domain.Row {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []domain.Row{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func (e *Engine) publish(t *domain.Table, event string, record domain.Row) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(t.ProjectID, t.Name, event, record)
}

// ResolveTableID maps a table name to its id, used by the client
// surface where tables are addressed by name.
func (e *Engine) ResolveTableID(ctx context.Context, projectID, name string) (string, error) {
	if err := e.checkProject(ctx, projectID); err != nil {
		return "", err
	}
	return e.repo.IDByName(ctx, projectID, name)
}

// PurgeProject implements the tenant cascade for tables.
func (e *Engine) PurgeProject(ctx context.Context, projectID string) error {
	return e.repo.PurgeProject(ctx, projectID)
}
