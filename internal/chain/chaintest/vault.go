package chaintest

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"donationScope/internal/vault"
)

// Ether converts a whole-and-fraction ETH literal such as "1.5" to wei.
func Ether(value string) *big.Int {
	rat, ok := new(big.Rat).SetString(value)
	if !ok {
		panic("chaintest: bad ether literal " + value)
	}
	rat.Mul(rat, new(big.Rat).SetInt(big.NewInt(1_000_000_000_000_000_000)))
	if !rat.IsInt() {
		panic("chaintest: ether literal below 1 wei " + value)
	}
	return new(big.Int).Set(rat.Num())
}

// VaultReads answers DonationVault view calls with fixed values.
func VaultReads(totalReceived *big.Int, hardCap *big.Int, beneficiary common.Address) func(context.Context, ethereum.CallMsg) ([]byte, error) {
	parsed, err := vault.ABI()
	if err != nil {
		panic(err)
	}
	return func(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
		if len(msg.Data) < 4 {
			return nil, fmt.Errorf("execution reverted")
		}
		method, err := parsed.MethodById(msg.Data[:4])
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case "totalReceived":
			return method.Outputs.Pack(totalReceived)
		case "hardCap":
			return method.Outputs.Pack(hardCap)
		case "beneficiary":
			return method.Outputs.Pack(beneficiary)
		default:
			return nil, fmt.Errorf("execution reverted")
		}
	}
}

// DonationLog builds a Donation log as the vault would emit it.
func DonationLog(contract common.Address, donor common.Address, amountWei *big.Int, blockNumber uint64, index uint) types.Log {
	parsed, err := vault.ABI()
	if err != nil {
		panic(err)
	}
	event := parsed.Events[vault.DonationEventName]
	data, err := event.Inputs.NonIndexed().Pack(amountWei)
	if err != nil {
		panic(err)
	}
	txHash := crypto.Keccak256Hash(donor.Bytes(), new(big.Int).SetUint64(blockNumber).Bytes(), big.NewInt(int64(index)).Bytes())
	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{event.ID, common.BytesToHash(donor.Bytes())},
		Data:        data,
		BlockNumber: blockNumber,
		TxHash:      txHash,
		Index:       index,
	}
}
