package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSink loads tables into Postgres with COPY.
type PGSink struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPGSink connects to dsn. An empty schema means public.
func NewPGSink(ctx context.Context, dsn, schema string) (*PGSink, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if schema == "" {
		schema = "public"
	}
	return &PGSink{pool: pool, schema: schema}, nil
}

// Close releases the pool.
func (s *PGSink) Close() { s.pool.Close() }

func createTableSQL(schema string, t Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.PGType
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		pgx.Identifier{schema, t.Name}.Sanitize(), strings.Join(cols, ",\n\t"))
}

// Write replaces the contents of each table in one transaction and returns
// the number of rows copied per table.
func (s *PGSink) Write(ctx context.Context, tables []Table) (map[string]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{s.schema}.Sanitize()); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	copied := make(map[string]int64, len(tables))
	for _, t := range tables {
		if _, err := tx.Exec(ctx, createTableSQL(s.schema, t)); err != nil {
			return nil, fmt.Errorf("create %s: %w", t.Name, err)
		}
		if _, err := tx.Exec(ctx, "TRUNCATE "+pgx.Identifier{s.schema, t.Name}.Sanitize()); err != nil {
			return nil, fmt.Errorf("truncate %s: %w", t.Name, err)
		}
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{s.schema, t.Name},
			t.Header(),
			pgx.CopyFromRows(t.Rows),
		)
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", t.Name, err)
		}
		copied[t.Name] = n
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return copied, nil
}
