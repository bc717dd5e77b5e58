package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"donationScope/internal/storage/postgres"
	"donationScope/internal/storage/sqlite"
)

// OpenKV opens the KV backend named by dsn:
//
//	memory
//	file:<path>       JSON document
//	sqlite:<path>     SQLite database
//	postgres://...    Postgres (tables are created on open)
//
// The returned close func is never nil.
func OpenKV(ctx context.Context, dsn string, logger *zap.Logger) (KV, func(), error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemoryKV(), func() {}, nil
	case strings.HasPrefix(dsn, "file:"):
		return NewFileKV(strings.TrimPrefix(dsn, "file:"), logger), func() {}, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		kv, err := sqlite.Open(ctx, strings.TrimPrefix(dsn, "sqlite:"))
		if err != nil {
			return nil, func() {}, err
		}
		return kv, func() { _ = kv.Close() }, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, func() {}, err
		}
		return store, store.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported store: %s", dsn)
	}
}

// OpenSink opens the donation archive named by target: a postgres DSN, or a JSONL file path
// (optionally prefixed with jsonl:).
func OpenSink(ctx context.Context, target string) (Sink, func(), error) {
	target = strings.TrimSpace(target)
	switch {
	case target == "":
		return nil, func() {}, fmt.Errorf("archive target is required")
	case strings.HasPrefix(target, "postgres://"), strings.HasPrefix(target, "postgresql://"):
		store, err := postgres.NewStore(ctx, target)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, func() {}, err
		}
		return store, store.Close, nil
	default:
		return NewJsonlStorage(strings.TrimPrefix(target, "jsonl:")), func() {}, nil
	}
}
