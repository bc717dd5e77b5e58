package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"donationScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS donations (
	chain_id     BIGINT NOT NULL,
	contract     TEXT NOT NULL,
	tx_hash      TEXT NOT NULL,
	log_index    BIGINT NOT NULL,
	chain        TEXT NOT NULL,
	donor        TEXT NOT NULL,
	amount_wei   NUMERIC(78, 0) NOT NULL,
	amount_eth   NUMERIC NOT NULL,
	block_number BIGINT NOT NULL,
	block_ts     BIGINT NOT NULL,
	ingested_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, contract, tx_hash, log_index)
);
`

// Store provides Postgres persistence for the KV store and the donation archive.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	row := s.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key=$1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

// Delete removes key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key=$1`, key)
	return err
}

// PutDonationBatch inserts donation records, ignoring ones already archived.
func (s *Store) PutDonationBatch(ctx context.Context, records []model.DonationRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		ingestedAt, err := time.Parse(time.RFC3339Nano, r.IngestedAt)
		if err != nil {
			return fmt.Errorf("parse ingested_at %q: %w", r.IngestedAt, err)
		}
		batch.Queue(`
			INSERT INTO donations (
				chain_id, contract, tx_hash, log_index, chain, donor,
				amount_wei, amount_eth, block_number, block_ts, ingested_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8::text::numeric, $9, $10, $11)
			ON CONFLICT (chain_id, contract, tx_hash, log_index) DO NOTHING
		`,
			int64(r.ChainID),
			r.Contract,
			r.TxHash,
			int64(r.LogIndex),
			r.Chain,
			r.Donor,
			r.AmountWei,
			r.AmountEth,
			int64(r.BlockNumber),
			int64(r.Timestamp),
			ingestedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
