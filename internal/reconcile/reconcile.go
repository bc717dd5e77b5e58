// Package reconcile determines how much the donation vault has received.
package reconcile

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"go.uber.org/zap"

	"donationScope/internal/chain"
	"donationScope/internal/ethunit"
	"donationScope/internal/fallback"
	"donationScope/internal/indexer"
	"donationScope/internal/model"
	"donationScope/internal/vault"
)

// Strategy names reported in DonationState.Source.
const (
	SourceTotalReceived         = "totalReceived"
	SourceFallbackTotalReceived = "fallback.totalReceived"
	SourceDonationLogs          = "donationLogs"
)

// ProgressRenderer receives a successfully reconciled state.
type ProgressRenderer interface {
	RenderProgress(state model.DonationState)
}

// Reconciler reads the received total through a chain of strategies.
type Reconciler struct {
	pool            *chain.Pool
	vault           *vault.Vault
	scanner         *indexer.Scanner
	deploymentBlock uint64
	renderer        ProgressRenderer
	logger          *zap.Logger
}

// New builds a Reconciler. A nil renderer is allowed.
func New(pool *chain.Pool, v *vault.Vault, scanner *indexer.Scanner, deploymentBlock uint64, renderer ProgressRenderer, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		pool:            pool,
		vault:           v,
		scanner:         scanner,
		deploymentBlock: deploymentBlock,
		renderer:        renderer,
		logger:          logger,
	}
}

// Update reconciles the received total against goalEth and renders it. When every
// strategy fails the previously rendered progress is left as it was.
func (r *Reconciler) Update(ctx context.Context, goalEth float64) (model.DonationState, error) {
	steps := []fallback.Step[*big.Int]{
		{Name: SourceTotalReceived, Run: r.readActive},
		{Name: SourceFallbackTotalReceived, Run: r.readFallback},
		{Name: SourceDonationLogs, Run: r.sumLogs},
	}

	total, source, err := fallback.FirstSuccess(ctx, r.logger, steps)
	if err != nil {
		r.logger.Error("progress reconciliation failed", zap.Error(err))
		return model.DonationState{}, fmt.Errorf("reconcile progress: %w", err)
	}

	state := NewState(total, goalEth, source)
	if r.renderer != nil {
		r.renderer.RenderProgress(state)
	}
	r.logger.Info("progress updated",
		zap.String("source", source),
		zap.String("received_wei", total.String()),
		zap.Float64("percent", state.Percent),
	)
	return state, nil
}

func (r *Reconciler) readActive(ctx context.Context) (*big.Int, error) {
	backend, err := r.pool.Active(ctx)
	if err != nil {
		return nil, err
	}
	return r.vault.TotalReceived(ctx, backend)
}

func (r *Reconciler) readFallback(ctx context.Context) (*big.Int, error) {
	backend, switched, err := r.pool.SwitchToFallback(ctx)
	if !switched {
		return nil, fallback.ErrSkip
	}
	if err != nil {
		return nil, err
	}
	return r.vault.TotalReceived(ctx, backend)
}

func (r *Reconciler) sumLogs(ctx context.Context) (*big.Int, error) {
	backend, err := r.pool.Active(ctx)
	if err != nil {
		return nil, err
	}
	result, err := r.scanner.ScanToLatest(ctx, backend, r.deploymentBlock)
	if err != nil {
		return nil, err
	}
	return indexer.SumWei(result.Events), nil
}

// NewState derives the displayed progress from a received total.
func NewState(receivedWei *big.Int, goalEth float64, source string) model.DonationState {
	if receivedWei == nil {
		receivedWei = new(big.Int)
	}
	received := ethunit.ToEther(receivedWei)
	return model.DonationState{
		ReceivedWei: new(big.Int).Set(receivedWei),
		ReceivedEth: received,
		GoalEth:     goalEth,
		Percent:     Percent(received, goalEth),
		Source:      source,
	}
}

// Percent is min(received/goal, 1) * 100, clamped to [0, 100].
func Percent(receivedEth, goalEth float64) float64 {
	if math.IsNaN(receivedEth) || math.IsNaN(goalEth) || goalEth <= 0 {
		return 0
	}
	p := math.Min(receivedEth/goalEth, 1) * 100
	if p < 0 {
		return 0
	}
	return p
}
