// Package chaintest provides an in-memory chain.Backend for tests.
package chaintest

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"donationScope/internal/chain"
)

// ErrNotConfigured is returned by Backend methods without a configured hook.
var ErrNotConfigured = errors.New("chaintest: not configured")

// Backend is a programmable chain.Backend. Nil hooks return ErrNotConfigured.
type Backend struct {
	ChainIDValue *big.Int
	Latest       uint64
	Logs         []types.Log

	CallFn    func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	LogsErr   error
	LatestErr error
	SendFn    func(ctx context.Context, tx *types.Transaction) error
	Receipt   *types.Receipt
	WaitErr   error

	mu       sync.Mutex
	calls    int
	logScans int
	sent     []*types.Transaction
	closed   bool
}

var _ chain.Backend = (*Backend)(nil)

// Calls returns the number of eth_call requests served.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// LogScans returns the number of FilterLogs requests served.
func (b *Backend) LogScans() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logScans
}

// Sent returns the transactions passed to SendTransaction.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*types.Transaction, len(b.sent))
	copy(out, b.sent)
	return out
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) GetChainID(context.Context) (*big.Int, error) {
	if b.ChainIDValue == nil {
		return big.NewInt(11155111), nil
	}
	return new(big.Int).Set(b.ChainIDValue), nil
}

func (b *Backend) LatestBlockNumber(context.Context) (uint64, error) {
	if b.LatestErr != nil {
		return 0, b.LatestErr
	}
	return b.Latest, nil
}

func (b *Backend) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1700000000 + number*12, nil
}

func (b *Backend) FilterLogs(_ context.Context, fromBlock uint64, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	b.mu.Lock()
	b.logScans++
	b.mu.Unlock()
	if b.LogsErr != nil {
		return nil, b.LogsErr
	}

	out := make([]types.Log, 0, len(b.Logs))
	for _, log := range b.Logs {
		if log.BlockNumber < fromBlock || log.BlockNumber > toBlock {
			continue
		}
		if len(addresses) > 0 && !containsAddress(addresses, log.Address) {
			continue
		}
		if len(topic0) > 0 && (len(log.Topics) == 0 || !containsHash(topic0, log.Topics[0])) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.CallFn == nil {
		return nil, ErrNotConfigured
	}
	return b.CallFn(ctx, msg)
}

func (b *Backend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *Backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: new(big.Int).SetUint64(b.Latest), BaseFee: big.NewInt(10_000_000_000)}, nil
}

func (b *Backend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 30_000, nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if b.SendFn != nil {
		if err := b.SendFn(ctx, tx); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.sent = append(b.sent, tx)
	b.mu.Unlock()
	return nil
}

func (b *Backend) WaitMined(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if b.WaitErr != nil {
		return nil, b.WaitErr
	}
	if b.Receipt != nil {
		return b.Receipt, nil
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

func (b *Backend) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Dialer returns a chain.Dialer serving backends by URL. Unknown URLs fail to dial.
func Dialer(backends map[string]*Backend) chain.Dialer {
	return func(_ context.Context, rpcURL string) (chain.Backend, error) {
		backend, ok := backends[rpcURL]
		if !ok {
			return nil, errors.New("chaintest: dial " + rpcURL + ": connection refused")
		}
		return backend, nil
	}
}

func containsAddress(list []common.Address, addr common.Address) bool {
	for _, item := range list {
		if item == addr {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, hash common.Hash) bool {
	for _, item := range list {
		if item == hash {
			return true
		}
	}
	return false
}
