package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DonationEvent is a decoded Donation(address indexed donor, uint256 amount) log.
type DonationEvent struct {
	Donor       common.Address
	AmountWei   *big.Int
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}
