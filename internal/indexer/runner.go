package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"donationScope/internal/model"
	"donationScope/internal/storage"
)

// SyncSource is what the archive runner needs from the chain.
type SyncSource interface {
	LogSource
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// RunConfig holds runtime settings for the donation archive sync.
type RunConfig struct {
	Chain             string
	ChainID           uint64
	DeploymentBlock   uint64
	ToBlock           uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner archives Donation logs into a storage sink, resuming from a checkpoint.
type Runner struct {
	cfg     RunConfig
	source  SyncSource
	scanner *Scanner
	sink    storage.Sink
	logger  *zap.Logger
	retry   backoff
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source SyncSource, scanner *Scanner, sink storage.Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		source:  source,
		scanner: scanner,
		sink:    sink,
		logger:  logger,
		retry:   newBackoff(cfg.MaxRetries, cfg.RetryBackoff),
	}
}

// Run executes the sync loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.scanner == nil {
		return fmt.Errorf("scanner is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	from := r.cfg.DeploymentBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.source.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	contract := r.scanner.vault.Address().Hex()
	checkpoint := NewCheckpointStore(r.cfg.CheckpointPath, CheckpointScope(r.cfg.Chain, contract), r.cfg.CheckpointEnabled)
	cp, ok, err := checkpoint.Load()
	if err != nil {
		return err
	}
	switch {
	case ok && cp.LastProcessedBlock >= from:
		from = cp.LastProcessedBlock + 1
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	case !ok && cp.Scope != "":
		r.logger.Warn("ignore checkpoint for another vault", zap.String("scope", cp.Scope))
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		r.logger.Info("fetch donations", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		events, err := r.scanner.Scan(ctx, r.source, blockRange.From, blockRange.To)
		if err != nil {
			return err
		}

		ingestedAt := time.Now().UTC()
		records := make([]model.DonationRecord, 0, len(events))
		for _, event := range events {
			ts, err := r.blockTimestampWithRetry(ctx, event.BlockNumber)
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", event.BlockNumber, err)
			}
			records = append(records, buildDonationRecord(r.cfg.Chain, r.cfg.ChainID, contract, event, ts, ingestedAt))
		}

		if err := r.sink.PutDonationBatch(ctx, records); err != nil {
			return fmt.Errorf("store donations: %w", err)
		}

		if err := checkpoint.Save(blockRange.To); err != nil {
			return err
		}

		r.logger.Info("batch complete", zap.Int("donations", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return nil
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := r.retry.do(ctx, func(ctx context.Context) error {
		var err error
		ts, err = r.source.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}
