// Package vault reads and encodes calls for the DonationVault contract.
package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"donationScope/internal/model"
)

const DonationEventName = "Donation"

// Caller performs eth_call requests.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Vault is a typed facade over one deployed DonationVault.
type Vault struct {
	address common.Address
	abi     abi.ABI
}

// New binds the facade to a contract address.
func New(address common.Address) (*Vault, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	return &Vault{address: address, abi: parsed}, nil
}

// Address returns the contract address.
func (v *Vault) Address() common.Address {
	return v.address
}

// Beneficiary reads beneficiary().
func (v *Vault) Beneficiary(ctx context.Context, caller Caller) (common.Address, error) {
	values, err := v.call(ctx, caller, "beneficiary")
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("beneficiary: unsupported address type %T", values[0])
	}
	return addr, nil
}

// HardCap reads hardCap() in wei.
func (v *Vault) HardCap(ctx context.Context, caller Caller) (*big.Int, error) {
	return v.callUint(ctx, caller, "hardCap")
}

// TotalReceived reads totalReceived() in wei.
func (v *Vault) TotalReceived(ctx context.Context, caller Caller) (*big.Int, error) {
	return v.callUint(ctx, caller, "totalReceived")
}

// DonationTopic is topic0 of the Donation event.
func (v *Vault) DonationTopic() common.Hash {
	return v.abi.Events[DonationEventName].ID
}

// DecodeDonation decodes a Donation log emitted by this vault.
func (v *Vault) DecodeDonation(log types.Log) (model.DonationEvent, error) {
	event := v.abi.Events[DonationEventName]
	if len(log.Topics) != 2 {
		return model.DonationEvent{}, fmt.Errorf("donation log: expected 2 topics, got %d", len(log.Topics))
	}
	if log.Topics[0] != event.ID {
		return model.DonationEvent{}, fmt.Errorf("donation log: unexpected topic0 %s", log.Topics[0].Hex())
	}
	if log.Address != v.address {
		return model.DonationEvent{}, fmt.Errorf("donation log: unexpected emitter %s", log.Address.Hex())
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.DonationEvent{}, fmt.Errorf("unpack donation: %w", err)
	}
	if len(values) != 1 {
		return model.DonationEvent{}, fmt.Errorf("unexpected donation values: %d", len(values))
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return model.DonationEvent{}, fmt.Errorf("donation amount: unsupported int type %T", values[0])
	}

	return model.DonationEvent{
		Donor:       common.BytesToAddress(log.Topics[1].Bytes()),
		AmountWei:   new(big.Int).Set(amount),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}, nil
}

func (v *Vault) callUint(ctx context.Context, caller Caller, method string) (*big.Int, error) {
	values, err := v.call(ctx, caller, method)
	if err != nil {
		return nil, err
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported int type %T", method, values[0])
	}
	return new(big.Int).Set(value), nil
}

func (v *Vault) call(ctx context.Context, caller Caller, method string) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	data, err := v.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := v.address
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := v.abi.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return values, nil
}
