package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps blobs in a single key/bytea table and set
// members in a two-column table, which is enough for the flat key
// scheme the repositories use. Values are opaque: index keys hold bare
// id strings, not JSON.
type PostgresStore struct {
	pool *pgxpool.Pool
}

type PostgresOptions struct {
	DSN       string
	ConnectTO time.Duration
	PingTO    time.Duration
}

func OpenPostgres(ctx context.Context, opt PostgresOptions) (*PostgresStore, error) {
	if opt.DSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	if opt.ConnectTO == 0 {
		opt.ConnectTO = 5 * time.Second
	}
	if opt.PingTO == 0 {
		opt.PingTO = 2 * time.Second
	}

	cctx, cancel := context.WithTimeout(ctx, opt.ConnectTO)
	defer cancel()

	pool, err := pgxpool.New(cctx, opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pctx, pcancel := context.WithTimeout(ctx, opt.PingTO)
	defer pcancel()

	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const ddl = `
create table if not exists kv_blobs (
	key   text primary key,
	value bytea not null
);
create table if not exists kv_sets (
	key    text not null,
	member text not null,
	primary key (key, member)
);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `select value from kv_blobs where key = $1;`
	var data []byte
	err := s.pool.QueryRow(ctx, q, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg get %s: %w", key, err)
	}
	return data, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	const q = `
insert into kv_blobs (key, value) values ($1, $2)
on conflict (key) do update set value = excluded.value;
`
	if _, err := s.pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("pg put %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	const q = `delete from kv_blobs where key = $1;`
	if _, err := s.pool.Exec(ctx, q, key); err != nil {
		return fmt.Errorf("pg delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) SetAdd(ctx context.Context, key, member string) error {
	const q = `
insert into kv_sets (key, member) values ($1, $2)
on conflict do nothing;
`
	if _, err := s.pool.Exec(ctx, q, key, member); err != nil {
		return fmt.Errorf("pg set add %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) SetRemove(ctx context.Context, key, member string) error {
	const q = `delete from kv_sets where key = $1 and member = $2;`
	if _, err := s.pool.Exec(ctx, q, key, member); err != nil {
		return fmt.Errorf("pg set remove %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	const q = `select member from kv_sets where key = $1;`
	rows, err := s.pool.Query(ctx, q, key)
	if err != nil {
		return nil, fmt.Errorf("pg set members %s: %w", key, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
