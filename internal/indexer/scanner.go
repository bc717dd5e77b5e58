package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"donationScope/internal/model"
	"donationScope/internal/vault"
)

// LogSource is the subset of the chain client needed to scan logs.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock uint64, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// ScanConfig controls batching and retries of a log scan.
type ScanConfig struct {
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Scanner reads Donation logs for one vault.
type Scanner struct {
	cfg    ScanConfig
	vault  *vault.Vault
	logger *zap.Logger
}

// NewScanner builds a Scanner.
func NewScanner(cfg ScanConfig, v *vault.Vault, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 2000
	}
	return &Scanner{cfg: cfg, vault: v, logger: logger}
}

// ScanResult is the outcome of a scan up to a fixed head.
type ScanResult struct {
	Events  []model.DonationEvent
	ToBlock uint64
}

// ScanToLatest scans Donation logs from fromBlock up to the current head.
func (s *Scanner) ScanToLatest(ctx context.Context, source LogSource, fromBlock uint64) (ScanResult, error) {
	if source == nil {
		return ScanResult{}, fmt.Errorf("chain client is nil")
	}
	latest, err := source.LatestBlockNumber(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("get latest block: %w", err)
	}
	if fromBlock > latest {
		return ScanResult{ToBlock: latest}, nil
	}

	events, err := s.Scan(ctx, source, fromBlock, latest)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Events: events, ToBlock: latest}, nil
}

// Scan returns the decoded Donation events in [fromBlock, toBlock], deduplicated
// by block, transaction and log index. Removed (reorged) logs are dropped.
func (s *Scanner) Scan(ctx context.Context, source LogSource, fromBlock, toBlock uint64) ([]model.DonationEvent, error) {
	ranges, err := SplitRange(fromBlock, toBlock, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	events := make([]model.DonationEvent, 0)
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		logs, err := s.filterLogsWithRetry(ctx, source, blockRange)
		if err != nil {
			return nil, fmt.Errorf("filter logs: %w", err)
		}

		for _, log := range logs {
			if log.Removed {
				continue
			}
			id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			event, err := s.vault.DecodeDonation(log)
			if err != nil {
				s.logger.Warn("skip undecodable donation log", zap.Error(err), zap.Uint64("block_number", log.BlockNumber), zap.String("tx_hash", log.TxHash.Hex()))
				continue
			}
			events = append(events, event)
		}

		s.logger.Debug("donation batch scanned", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To), zap.Int("logs", len(logs)))
	}

	return events, nil
}

func (s *Scanner) filterLogsWithRetry(ctx context.Context, source LogSource, blockRange BlockRange) ([]types.Log, error) {
	var logs []types.Log
	addresses := []common.Address{s.vault.Address()}
	topic0 := []common.Hash{s.vault.DonationTopic()}
	err := newBackoff(s.cfg.MaxRetries, s.cfg.RetryBackoff).do(ctx, func(ctx context.Context) error {
		var err error
		logs, err = source.FilterLogs(ctx, blockRange.From, blockRange.To, addresses, topic0)
		if err != nil {
			s.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		}
		return err
	})
	return logs, err
}

// SumWei totals the donation amounts.
func SumWei(events []model.DonationEvent) *big.Int {
	total := new(big.Int)
	for _, event := range events {
		if event.AmountWei != nil {
			total.Add(total, event.AmountWei)
		}
	}
	return total
}
