package model

import "math/big"

// DonationState is the result of one reconciliation pass.
type DonationState struct {
	ReceivedWei *big.Int `json:"received_wei"`
	ReceivedEth float64  `json:"received_eth"`
	GoalEth     float64  `json:"goal_eth"`
	Percent     float64  `json:"percent"`
	Source      string   `json:"source"`
}
