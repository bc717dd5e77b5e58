// Package wallet connects a signing account and submits donations to the vault.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"donationScope/internal/chain"
	"donationScope/internal/ethunit"
	"donationScope/internal/view"
)

var (
	ErrNoWallet      = errors.New("wallet not found")
	ErrInvalidAmount = errors.New("please enter a valid amount")
	ErrTxFailed      = errors.New("transaction failed")
)

// Status texts shown while a donation is in flight.
const (
	StatusSending   = "Sending transaction..."
	StatusSent      = "Transaction sent. Waiting for confirmation..."
	StatusSucceeded = "Donation successful!"
	StatusFailed    = "Transaction failed."
)

// State is the wallet lifecycle position.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateSubmitting
	StateConfirming
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubmitting:
		return "submitting"
	case StateConfirming:
		return "confirming"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Renderer receives wallet and transaction feedback.
type Renderer interface {
	RenderWallet(label string, connected bool)
	RenderStatus(text string)
	RenderTxLink(url string)
	FocusAmount()
}

// Donation describes a confirmed donation.
type Donation struct {
	From        common.Address `json:"from"`
	AmountWei   *big.Int       `json:"amount_wei"`
	TxHash      common.Hash    `json:"tx_hash"`
	BlockNumber uint64         `json:"block_number"`
	TxURL       string         `json:"tx_url"`
}

// Wallet owns the connected account for one session.
type Wallet struct {
	provider  Provider
	pool      *chain.Pool
	chainName string
	contract  common.Address
	renderer  Renderer
	logger    *zap.Logger

	mu      sync.Mutex
	state   State
	account *common.Address
}

// New builds a Wallet. A nil provider means no wallet is available.
func New(provider Provider, pool *chain.Pool, chainName string, contract common.Address, renderer Renderer, logger *zap.Logger) *Wallet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wallet{
		provider:  provider,
		pool:      pool,
		chainName: chainName,
		contract:  contract,
		renderer:  renderer,
		logger:    logger,
	}
}

// State returns the current lifecycle state.
func (w *Wallet) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Account returns the connected account, if any.
func (w *Wallet) Account() (common.Address, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.account == nil {
		return common.Address{}, false
	}
	return *w.account, true
}

// Connect selects the provider's first account.
func (w *Wallet) Connect(ctx context.Context) (common.Address, error) {
	if w.provider == nil {
		return common.Address{}, ErrNoWallet
	}

	w.setState(StateConnecting)
	accounts, err := w.provider.Accounts(ctx)
	if err != nil {
		w.setState(StateIdle)
		return common.Address{}, fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		w.setState(StateIdle)
		return common.Address{}, ErrNoWallet
	}

	account := accounts[0]
	w.mu.Lock()
	w.account = &account
	w.state = StateConnected
	w.mu.Unlock()

	if w.renderer != nil {
		w.renderer.RenderWallet(view.ShortAddress(account.Hex()), true)
	}
	w.logger.Info("wallet connected", zap.String("account", account.Hex()))
	return account, nil
}

// Donate sends amountText ETH to the vault and waits for the receipt. A missing
// wallet or invalid amount fails before anything touches the network.
func (w *Wallet) Donate(ctx context.Context, amountText string) (Donation, error) {
	account, ok := w.Account()
	if !ok {
		if _, err := w.Connect(ctx); err != nil {
			w.logger.Warn("connect before donate failed", zap.Error(err))
		}
		account, ok = w.Account()
		if !ok {
			return Donation{}, ErrNoWallet
		}
	}

	amount, err := parseAmount(amountText)
	if err != nil {
		if w.renderer != nil {
			w.renderer.FocusAmount()
		}
		return Donation{}, err
	}

	w.setState(StateSubmitting)
	w.status(StatusSending)

	backend, err := w.pool.Active(ctx)
	if err != nil {
		return Donation{}, w.fail(err)
	}
	signed, err := w.buildAndSign(ctx, backend, account, amount)
	if err != nil {
		return Donation{}, w.fail(err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return Donation{}, w.fail(fmt.Errorf("send transaction: %w", err))
	}

	w.setState(StateConfirming)
	w.status(StatusSent)
	w.logger.Info("donation sent", zap.String("tx_hash", signed.Hash().Hex()), zap.String("amount_wei", amount.String()))

	receipt, err := backend.WaitMined(ctx, signed)
	if err != nil {
		return Donation{}, w.fail(fmt.Errorf("wait for receipt: %w", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		w.setState(StateFailed)
		w.status(StatusFailed)
		w.logger.Warn("donation reverted", zap.String("tx_hash", signed.Hash().Hex()))
		return Donation{}, ErrTxFailed
	}

	donation := Donation{
		From:      account,
		AmountWei: amount,
		TxHash:    signed.Hash(),
		TxURL:     chain.TxURL(w.chainName, signed.Hash().Hex()),
	}
	if receipt.BlockNumber != nil {
		donation.BlockNumber = receipt.BlockNumber.Uint64()
	}

	w.setState(StateSucceeded)
	w.status(StatusSucceeded)
	if w.renderer != nil {
		w.renderer.RenderTxLink(donation.TxURL)
	}
	w.logger.Info("donation confirmed", zap.String("tx_hash", donation.TxHash.Hex()), zap.Uint64("block_number", donation.BlockNumber))
	return donation, nil
}

func (w *Wallet) buildAndSign(ctx context.Context, backend chain.Backend, account common.Address, amount *big.Int) (*types.Transaction, error) {
	chainID, err := backend.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	nonce, err := backend.PendingNonceAt(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get head: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	to := w.contract
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: account, To: &to, Value: amount})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     amount,
	})
	signed, err := w.provider.SignTx(ctx, account, tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

func (w *Wallet) fail(err error) error {
	w.setState(StateFailed)
	w.status("Error: " + err.Error())
	w.logger.Error("donation failed", zap.Error(err))
	return err
}

func (w *Wallet) status(text string) {
	if w.renderer != nil {
		w.renderer.RenderStatus(text)
	}
}

func (w *Wallet) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func parseAmount(text string) (*big.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidAmount
	}
	amount, err := ethunit.ParseEther(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return amount, nil
}
