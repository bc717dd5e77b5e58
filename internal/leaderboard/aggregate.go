package leaderboard

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"donationScope/internal/ethunit"
	"donationScope/internal/model"
)

// Aggregate totals donations per donor and orders them by amount, highest first.
// Donors with equal totals keep the order in which they first donated.
func Aggregate(events []model.DonationEvent) []model.LeaderboardEntry {
	type tally struct {
		donor common.Address
		total *big.Int
	}

	index := make(map[common.Address]int)
	tallies := make([]tally, 0)
	for _, event := range events {
		if event.AmountWei == nil {
			continue
		}
		i, ok := index[event.Donor]
		if !ok {
			i = len(tallies)
			index[event.Donor] = i
			tallies = append(tallies, tally{donor: event.Donor, total: new(big.Int)})
		}
		tallies[i].total.Add(tallies[i].total, event.AmountWei)
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		return tallies[i].total.Cmp(tallies[j].total) > 0
	})

	entries := make([]model.LeaderboardEntry, 0, len(tallies))
	for _, t := range tallies {
		entries = append(entries, model.LeaderboardEntry{
			Address:  t.donor.Hex(),
			TotalEth: ethunit.ToEther(t.total),
		})
	}
	return entries
}
