package domain

import (
	"time"

	"github.com/google/uuid"
)

// PrimaryColumn is the reserved primary-key column present in every
// table. It is created with the table and can never be renamed,
// retyped or deleted.
const PrimaryColumn = "id"

// Column is a named field declaration. Type is an opaque label (text,
// integer, boolean, timestamp, uuid, json are recommended); nothing is
// enforced beyond presence.
type Column struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Primary bool   `json:"primary,omitempty"`
}

// Row is an open record mapping column names to arbitrary JSON values.
// Schema migrations operate on rows as explicit key rewrites through
// the methods below, never through reflection.
type Row map[string]any

// ID returns the row's primary-key value.
func (r Row) ID() string {
	id, _ := r[PrimaryColumn].(string)
	return id
}

// Clone returns a shallow copy. Nested values are shared; callers that
// mutate nested structures must deep-copy themselves.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RenameKey moves the value under oldName to newName. A row without
// the old key is left untouched; no key is invented.
func (r Row) RenameKey(oldName, newName string) {
	if v, ok := r[oldName]; ok {
		r[newName] = v
		delete(r, oldName)
	}
}

// DeleteKey removes the value under name, if present.
func (r Row) DeleteKey(name string) {
	delete(r, name)
}

// Merge shallow-merges patch over the row. The primary-key field is
// never overwritten: a patch that carries one has that field ignored.
func (r Row) Merge(patch Row) {
	for k, v := range patch {
		if k == PrimaryColumn {
			continue
		}
		r[k] = v
	}
}

// Table is a named row container with a mutable column schema, scoped
// to one project. Columns keep insertion order with the primary column
// first; rows keep insertion order.
type Table struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Columns   []Column  `json:"columns"`
	Rows      []Row     `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a table with only the primary column and no rows.
func New(projectID, name string) *Table {
	return &Table{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Columns:   []Column{{Name: PrimaryColumn, Type: "uuid", Primary: true}},
		Rows:      []Row{},
		CreatedAt: time.Now().UTC(),
	}
}

// ColumnIndex returns the position of the column with the given name,
// or -1. Names are case-sensitive.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// RowIndex returns the position of the row with the given primary key,
// or -1.
func (t *Table) RowIndex(rowID string) int {
	for i, r := range t.Rows {
		if r.ID() == rowID {
			return i
		}
	}
	return -1
}
