// Package donate wires the donation widget together behind a single Session.
package donate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"donationScope/internal/chain"
	"donationScope/internal/ethunit"
	"donationScope/internal/indexer"
	"donationScope/internal/leaderboard"
	"donationScope/internal/model"
	"donationScope/internal/reconcile"
	"donationScope/internal/storage"
	"donationScope/internal/vault"
	"donationScope/internal/view"
	"donationScope/internal/wallet"
)

// GoalKey stores the user's goal override.
const GoalKey = "donate-goal"

// Settings are the static parameters of a Session.
type Settings struct {
	Chain           string
	Contract        string
	GoalEth         float64
	DeploymentBlock uint64
	BatchSize       uint64
	MaxRetries      int
	RetryBackoff    time.Duration
	CacheTTL        time.Duration
	Now             func() time.Time
}

// Info summarizes a Session for display.
type Info struct {
	Chain        string  `json:"chain"`
	ChainName    string  `json:"chain_name"`
	Contract     string  `json:"contract"`
	ContractURL  string  `json:"contract_url"`
	Goal         float64 `json:"goal"`
	Account      string  `json:"account,omitempty"`
	Beneficiary  string  `json:"beneficiary,omitempty"`
	HardCap      float64 `json:"hard_cap,omitempty"`
	UsedFallback bool    `json:"used_fallback"`
}

// vaultFacts are fixed at deployment, so they are read from the chain once.
type vaultFacts struct {
	beneficiary common.Address
	hardCapWei  *big.Int
}

// Session holds all state of one donation widget instance.
type Session struct {
	chainName string
	contract  string

	kv          storage.KV
	pool        *chain.Pool
	vault       *vault.Vault
	board       *view.Board
	reconciler  *reconcile.Reconciler
	leaderboard *leaderboard.Cache
	wallet      *wallet.Wallet
	logger      *zap.Logger

	mu    sync.RWMutex
	goal  float64
	facts *vaultFacts
}

// NewSession builds a Session and applies a stored goal override when present.
func NewSession(ctx context.Context, settings Settings, pool *chain.Pool, kv storage.KV, provider wallet.Provider, logger *zap.Logger) (*Session, error) {
	if pool == nil {
		return nil, errors.New("chain pool is nil")
	}
	if kv == nil {
		return nil, errors.New("storage is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	name, err := chain.NormalizeName(settings.Chain)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(settings.Contract) {
		return nil, fmt.Errorf("invalid contract address: %s", settings.Contract)
	}
	if !validGoal(settings.GoalEth) {
		settings.GoalEth = 9
	}

	contract := common.HexToAddress(settings.Contract)
	v, err := vault.New(contract)
	if err != nil {
		return nil, err
	}
	scanner := indexer.NewScanner(indexer.ScanConfig{
		BatchSize:    settings.BatchSize,
		MaxRetries:   settings.MaxRetries,
		RetryBackoff: settings.RetryBackoff,
	}, v, logger.Named("scanner"))

	board := view.NewBoard()
	s := &Session{
		chainName: name,
		contract:  settings.Contract,
		kv:        kv,
		pool:      pool,
		vault:     v,
		board:     board,
		logger:    logger,
		goal:      settings.GoalEth,
	}
	s.reconciler = reconcile.New(pool, v, scanner, settings.DeploymentBlock, board, logger.Named("progress"))
	s.leaderboard = leaderboard.New(kv, pool, scanner, leaderboard.Options{
		Chain:           name,
		Contract:        settings.Contract,
		DeploymentBlock: settings.DeploymentBlock,
		TTL:             settings.CacheTTL,
		Now:             settings.Now,
	}, board, logger.Named("leaderboard"))
	s.wallet = wallet.New(provider, pool, name, contract, board, logger.Named("wallet"))

	s.loadGoal(ctx)
	return s, nil
}

func (s *Session) Chain() string          { return s.chainName }
func (s *Session) Contract() string       { return s.contract }
func (s *Session) Board() *view.Board     { return s.board }
func (s *Session) Wallet() *wallet.Wallet { return s.wallet }

// Goal returns the current goal in ETH.
func (s *Session) Goal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal
}

// Info returns the session summary.
func (s *Session) Info() Info {
	info := Info{
		Chain:        s.chainName,
		ChainName:    chain.DisplayName(s.chainName),
		Contract:     s.contract,
		ContractURL:  chain.AddressURL(s.chainName, s.contract),
		Goal:         s.Goal(),
		UsedFallback: s.pool.UsedFallback(),
	}
	if account, ok := s.wallet.Account(); ok {
		info.Account = account.Hex()
	}
	s.mu.RLock()
	facts := s.facts
	s.mu.RUnlock()
	if facts != nil {
		info.Beneficiary = facts.beneficiary.Hex()
		info.HardCap = ethunit.ToEther(facts.hardCapWei)
	}
	return info
}

// Describe is Info with the vault's beneficiary and hard cap. They are read
// through the active endpoint until one read succeeds; a failed read is logged
// and leaves both fields empty.
func (s *Session) Describe(ctx context.Context) Info {
	s.mu.RLock()
	known := s.facts != nil
	s.mu.RUnlock()
	if !known {
		if err := s.readVaultFacts(ctx); err != nil {
			s.logger.Warn("read vault details failed", zap.Error(err))
		}
	}
	return s.Info()
}

func (s *Session) readVaultFacts(ctx context.Context) error {
	backend, err := s.pool.Active(ctx)
	if err != nil {
		return err
	}
	beneficiary, err := s.vault.Beneficiary(ctx, backend)
	if err != nil {
		return err
	}
	hardCap, err := s.vault.HardCap(ctx, backend)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.facts = &vaultFacts{beneficiary: beneficiary, hardCapWei: hardCap}
	s.mu.Unlock()
	return nil
}

// SetGoal replaces the goal, persists it and refreshes progress. Non-finite or
// non-positive values are rejected and leave everything unchanged.
func (s *Session) SetGoal(ctx context.Context, goal float64) bool {
	if !validGoal(goal) {
		return false
	}
	s.mu.Lock()
	s.goal = goal
	s.mu.Unlock()

	if err := s.kv.Set(ctx, GoalKey, strconv.FormatFloat(goal, 'f', -1, 64)); err != nil {
		s.logger.Warn("persist goal failed", zap.Error(err))
	}
	if _, err := s.UpdateProgress(ctx); err != nil {
		s.logger.Debug("progress refresh after goal change failed", zap.Error(err))
	}
	return true
}

// ParseGoal parses a goal entered as text.
func ParseGoal(text string) (float64, bool) {
	goal, err := strconv.ParseFloat(text, 64)
	if err != nil || !validGoal(goal) {
		return 0, false
	}
	return goal, true
}

// Connect selects the signing account and shows it with the chain details.
func (s *Session) Connect(ctx context.Context) (common.Address, error) {
	account, err := s.wallet.Connect(ctx)
	if err != nil {
		return common.Address{}, err
	}
	s.renderChain()
	return account, nil
}

// Donate submits a donation. After confirmation the cached leaderboard is dropped
// and both progress and leaderboard are refreshed.
func (s *Session) Donate(ctx context.Context, amountText string) (wallet.Donation, error) {
	donation, err := s.wallet.Donate(ctx, amountText)
	if err != nil {
		return wallet.Donation{}, err
	}

	if err := s.leaderboard.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate leaderboard cache failed", zap.Error(err))
	}
	if _, err := s.UpdateProgress(ctx); err != nil {
		s.logger.Debug("progress refresh after donation failed", zap.Error(err))
	}
	if _, err := s.RefreshLeaderboard(ctx); err != nil {
		s.logger.Debug("leaderboard refresh after donation failed", zap.Error(err))
	}
	return donation, nil
}

// UpdateProgress reconciles the received total against the current goal.
func (s *Session) UpdateProgress(ctx context.Context) (model.DonationState, error) {
	return s.reconciler.Update(ctx, s.Goal())
}

// RefreshLeaderboard returns the ranked donors, from cache while fresh.
func (s *Session) RefreshLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	return s.leaderboard.Fetch(ctx)
}

// InvalidateLeaderboard drops the cached leaderboard.
func (s *Session) InvalidateLeaderboard(ctx context.Context) error {
	return s.leaderboard.Invalidate(ctx)
}

// Init renders chain details, progress and the leaderboard. Read failures are
// logged and leave the affected parts of the board as they were.
func (s *Session) Init(ctx context.Context) {
	s.renderChain()
	if _, err := s.UpdateProgress(ctx); err != nil {
		s.logger.Debug("initial progress failed", zap.Error(err))
	}
	if _, err := s.RefreshLeaderboard(ctx); err != nil {
		s.logger.Debug("initial leaderboard failed", zap.Error(err))
	}
}

// Refresh starts a new read pass. The primary endpoint is tried again even if an
// earlier pass moved the session to the fallback, then everything is re-rendered.
func (s *Session) Refresh(ctx context.Context) {
	s.pool.Reset()
	s.Init(ctx)
}

func (s *Session) renderChain() {
	s.board.RenderChain(
		chain.DisplayName(s.chainName),
		chain.AddressURL(s.chainName, s.contract),
		view.ShortAddress(s.contract),
	)
}

func (s *Session) loadGoal(ctx context.Context) {
	raw, ok, err := s.kv.Get(ctx, GoalKey)
	if err != nil {
		s.logger.Warn("read goal override failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	goal, ok := ParseGoal(raw)
	if !ok {
		s.logger.Warn("ignore invalid goal override", zap.String("value", raw))
		return
	}
	s.mu.Lock()
	s.goal = goal
	s.mu.Unlock()
}

func validGoal(goal float64) bool {
	return !math.IsNaN(goal) && !math.IsInf(goal, 0) && goal > 0
}
