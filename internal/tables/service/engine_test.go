package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kivabase/kivabase-backend/internal/apperr"
	"github.com/kivabase/kivabase-backend/internal/storage"
	"github.com/kivabase/kivabase-backend/internal/tables/domain"
	"github.com/kivabase/kivabase-backend/internal/tables/repository"
)

type fakeProjects struct {
	ids map[string]bool
}

func (f *fakeProjects) Exists(_ context.Context, projectID string) (bool, error) {
	return f.ids[projectID], nil
}

type busEvent struct {
	ProjectID string
	Table     string
	Event     string
	Record    any
}

type captureBus struct {
	mu     sync.Mutex
	events []busEvent
}

func (b *captureBus) Publish(projectID, table, event string, record any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, busEvent{projectID, table, event, record})
}

func (b *captureBus) all() []busEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]busEvent(nil), b.events...)
}

func newTestEngine(t *testing.T) (*Engine, *captureBus) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := repository.NewRepo(storage.NewRedisStore(client))
	bus := &captureBus{}
	eng := NewEngine(repo, &fakeProjects{ids: map[string]bool{"p1": true}}, bus)
	return eng, bus
}

func TestCreateTable(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)
	assert.Equal(t, "items", tbl.Name)
	require.Len(t, tbl.Columns, 1)
	assert.Equal(t, domain.Column{Name: "id", Type: "uuid", Primary: true}, tbl.Columns[0])
	assert.Empty(t, tbl.Rows)

	_, err = eng.CreateTable(ctx, "p1", "items")
	assert.ErrorIs(t, err, domain.ErrTableExists)

	_, err = eng.CreateTable(ctx, "p1", "  ")
	assert.ErrorIs(t, err, domain.ErrTableName)

	_, err = eng.CreateTable(ctx, "missing-project", "items")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

// faultyStore fails every Get on keys with the given prefix.
type faultyStore struct {
	storage.Store
	prefix string
}

func (f *faultyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.HasPrefix(key, f.prefix) {
		return nil, fmt.Errorf("store unavailable")
	}
	return f.Store.Get(ctx, key)
}

func TestCreateTableNameCheckFailureIsInternal(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &faultyStore{Store: storage.NewRedisStore(client), prefix: "tablename:"}
	eng := NewEngine(repository.NewRepo(store), &fakeProjects{ids: map[string]bool{"p1": true}}, &captureBus{})

	// A broken name index must not be read as "name is free".
	_, err := eng.CreateTable(ctx, "p1", "items")
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))

	tables, err := eng.ListTables(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestDropTable(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)

	require.NoError(t, eng.DropTable(ctx, "p1", "items"))
	assert.ErrorIs(t, eng.DropTable(ctx, "p1", "items"), domain.ErrTableNotFound)

	_, err = eng.GetTableByName(ctx, "p1", "items")
	assert.ErrorIs(t, err, domain.ErrTableNotFound)

	// The name is free again after the drop.
	_, err = eng.CreateTable(ctx, "p1", "items")
	assert.NoError(t, err)
}

func TestAddColumn(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)

	row, err := eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{"title": "first"})
	require.NoError(t, err)

	updated, err := eng.AddColumn(ctx, "p1", tbl.ID, "score", "integer")
	require.NoError(t, err)
	require.Len(t, updated.Columns, 2)
	assert.Equal(t, "score", updated.Columns[1].Name)

	// No backfill: the pre-existing row has no "score" key.
	rows, err := eng.ListRows(ctx, "p1", tbl.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row.ID(), rows[0].ID())
	_, present := rows[0]["score"]
	assert.False(t, present)

	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "score", "integer")
	assert.ErrorIs(t, err, domain.ErrColumnExists)

	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "", "text")
	assert.ErrorIs(t, err, domain.ErrColumnSpec)

	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "name", "")
	assert.ErrorIs(t, err, domain.ErrColumnSpec)

	// Column names are case-sensitive: "Score" is distinct from "score".
	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "Score", "integer")
	assert.NoError(t, err)
}

func TestAlterColumn_RenameMigratesEveryRow(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)
	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "a", "text")
	require.NoError(t, err)

	var want []string
	for i := 0; i < 10; i++ {
		row, err := eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{"a": fmt.Sprintf("v%d", i)})
		require.NoError(t, err)
		want = append(want, row["a"].(string))
	}
	// One row never had the key; it must stay untouched.
	bare, err := eng.InsertRow(ctx, "p1", tbl.ID, nil)
	require.NoError(t, err)

	updated, err := eng.AlterColumn(ctx, "p1", tbl.ID, "a", "b", "")
	require.NoError(t, err)
	assert.Equal(t, "b", updated.Columns[1].Name)

	rows, err := eng.ListRows(ctx, "p1", tbl.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 11)

	var got []string
	for _, row := range rows {
		_, hasOld := row["a"]
		assert.False(t, hasOld, "old key must be gone from every row")
		if row.ID() == bare.ID() {
			_, hasNew := row["b"]
			assert.False(t, hasNew, "a row without the old key gains no new key")
			continue
		}
		got = append(got, row["b"].(string))
	}
	assert.Equal(t, want, got)
}

func TestAlterColumn_RetypeOnly(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)
	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "score", "text")
	require.NoError(t, err)
	row, err := eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{"score": "5"})
	require.NoError(t, err)

	updated, err := eng.AlterColumn(ctx, "p1", tbl.ID, "score", "", "integer")
	require.NoError(t, err)
	assert.Equal(t, "integer", updated.Columns[1].Type)
	assert.Equal(t, "score", updated.Columns[1].Name)

	rows, err := eng.ListRows(ctx, "p1", tbl.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row.ID(), rows[0].ID())
	assert.Equal(t, "5", rows[0]["score"])
}

func TestAlterColumn_Failures(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)
	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "a", "text")
	require.NoError(t, err)
	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "b", "text")
	require.NoError(t, err)

	_, err = eng.AlterColumn(ctx, "p1", tbl.ID, "nope", "x", "")
	assert.ErrorIs(t, err, domain.ErrColumnNotFound)

	_, err = eng.AlterColumn(ctx, "p1", tbl.ID, "id", "ident", "")
	assert.ErrorIs(t, err, domain.ErrPrimaryColumn)

	_, err = eng.AlterColumn(ctx, "p1", tbl.ID, "a", "b", "")
	assert.ErrorIs(t, err, domain.ErrColumnExists)

	// Schema unchanged after the failures.
	got, err := eng.GetTable(ctx, "p1", tbl.ID)
	require.NoError(t, err)
	require.Len(t, got.Columns, 3)
	assert.Equal(t, "id", got.Columns[0].Name)
	assert.True(t, got.Columns[0].Primary)
	assert.Equal(t, "a", got.Columns[1].Name)
	assert.Equal(t, "b", got.Columns[2].Name)
}

func TestDeleteColumn(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)
	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "score", "integer")
	require.NoError(t, err)
	row, err := eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{"score": float64(5)})
	require.NoError(t, err)

	updated, err := eng.DeleteColumn(ctx, "p1", tbl.ID, "score")
	require.NoError(t, err)
	require.Len(t, updated.Columns, 1)

	rows, err := eng.ListRows(ctx, "p1", tbl.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row.ID(), rows[0].ID())
	_, present := rows[0]["score"]
	assert.False(t, present)

	_, err = eng.DeleteColumn(ctx, "p1", tbl.ID, "score")
	assert.ErrorIs(t, err, domain.ErrColumnNotFound)

	_, err = eng.DeleteColumn(ctx, "p1", tbl.ID, "id")
	assert.ErrorIs(t, err, domain.ErrPrimaryColumn)
}

func TestInsertRow_EngineOwnsPrimaryKey(t *testing.T) {
	ctx := context.Background()
	eng, bus := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)

	row, err := eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{"id": "attacker-chosen", "title": "x"})
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", row.ID())
	assert.NotEmpty(t, row.ID())
	assert.Equal(t, "x", row["title"])

	events := bus.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventInsert, events[0].Event)
	assert.Equal(t, "items", events[0].Table)
	assert.Equal(t, "p1", events[0].ProjectID)
}

func TestRowIDsUniqueAcrossDeletes(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		row, err := eng.InsertRow(ctx, "p1", tbl.ID, nil)
		require.NoError(t, err)
		require.False(t, seen[row.ID()], "primary key reused")
		seen[row.ID()] = true
		require.NoError(t, eng.DeleteRow(ctx, "p1", tbl.ID, row.ID()))
	}
}

func TestUpdateRow(t *testing.T) {
	ctx := context.Background()
	eng, bus := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)
	row, err := eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{"title": "old", "score": float64(1)})
	require.NoError(t, err)

	updated, err := eng.UpdateRow(ctx, "p1", tbl.ID, row.ID(), domain.Row{"title": "new", "id": "smuggled"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated["title"])
	assert.Equal(t, float64(1), updated["score"], "untouched fields survive the merge")
	assert.Equal(t, row.ID(), updated.ID(), "primary key in a patch is ignored")

	_, err = eng.UpdateRow(ctx, "p1", tbl.ID, "missing", domain.Row{"title": "x"})
	assert.ErrorIs(t, err, domain.ErrRowNotFound)

	events := bus.all()
	require.Len(t, events, 2)
	assert.Equal(t, EventUpdate, events[1].Event)
}

func TestDeleteRow(t *testing.T) {
	ctx := context.Background()
	eng, bus := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)
	row, err := eng.InsertRow(ctx, "p1", tbl.ID, nil)
	require.NoError(t, err)

	require.NoError(t, eng.DeleteRow(ctx, "p1", tbl.ID, row.ID()))
	assert.ErrorIs(t, eng.DeleteRow(ctx, "p1", tbl.ID, row.ID()), domain.ErrRowNotFound)

	rows, err := eng.ListRows(ctx, "p1", tbl.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	events := bus.all()
	require.Len(t, events, 2)
	assert.Equal(t, EventDelete, events[1].Event)
}

func TestListRows_OrderAndPaging(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 5; i++ {
		row, err := eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{"n": float64(i)})
		require.NoError(t, err)
		ids = append(ids, row.ID())
	}

	rows, err := eng.ListRows(ctx, "p1", tbl.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i, row := range rows {
		assert.Equal(t, ids[i], row.ID(), "insertion order preserved")
	}

	page, err := eng.ListRows(ctx, "p1", tbl.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID())
	assert.Equal(t, ids[2], page[1].ID())

	empty, err := eng.ListRows(ctx, "p1", tbl.ID, 10, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConcurrentInserts_NoLostWrites(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{"n": float64(i)})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	rows, err := eng.ListRows(ctx, "p1", tbl.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, n)

	ids := make(map[string]bool, n)
	for _, row := range rows {
		ids[row.ID()] = true
	}
	assert.Len(t, ids, n, "every insert kept a distinct id")
}

func TestConcurrentRenameAndInserts(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)
	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "a", "text")
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n + 1)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, _ = eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{"a": fmt.Sprintf("v%d", i)})
		}(i)
	}
	go func() {
		defer wg.Done()
		_, _ = eng.AlterColumn(ctx, "p1", tbl.ID, "a", "b", "")
	}()
	wg.Wait()

	rows, err := eng.ListRows(ctx, "p1", tbl.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, n, "no insert lost to the racing rename")

	for _, row := range rows {
		_, hasOld := row["a"]
		_, hasNew := row["b"]
		assert.False(t, hasOld && hasNew, "a row must never carry both keys")
	}
}

func TestRoundTripScenario(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tbl, err := eng.CreateTable(ctx, "p1", "items")
	require.NoError(t, err)
	require.Equal(t, []domain.Column{{Name: "id", Type: "uuid", Primary: true}}, tbl.Columns)

	row, err := eng.InsertRow(ctx, "p1", tbl.ID, domain.Row{})
	require.NoError(t, err)
	require.NotEmpty(t, row.ID())

	_, err = eng.AddColumn(ctx, "p1", tbl.ID, "title", "text")
	require.NoError(t, err)

	_, err = eng.UpdateRow(ctx, "p1", tbl.ID, row.ID(), domain.Row{"title": "Widget"})
	require.NoError(t, err)

	rows, err := eng.ListRows(ctx, "p1", tbl.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.Row{"id": row.ID(), "title": "Widget"}, rows[0])
}

func TestPurgeProject(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	a, err := eng.CreateTable(ctx, "p1", "a")
	require.NoError(t, err)
	_, err = eng.CreateTable(ctx, "p1", "b")
	require.NoError(t, err)
	_, err = eng.InsertRow(ctx, "p1", a.ID, nil)
	require.NoError(t, err)

	require.NoError(t, eng.PurgeProject(ctx, "p1"))

	_, err = eng.GetTable(ctx, "p1", a.ID)
	assert.ErrorIs(t, err, domain.ErrTableNotFound)
	_, err = eng.GetTableByName(ctx, "p1", "b")
	assert.ErrorIs(t, err, domain.ErrTableNotFound)

	// Purge is idempotent.
	require.NoError(t, eng.PurgeProject(ctx, "p1"))
}
