package model

// LeaderboardEntry is a donor's cumulative contribution in ETH.
type LeaderboardEntry struct {
	Address  string  `json:"address"`
	TotalEth float64 `json:"amount"`
}

// LeaderboardCacheRecord is the persisted leaderboard with its write time in epoch milliseconds.
type LeaderboardCacheRecord struct {
	Data      []LeaderboardEntry `json:"data"`
	Timestamp int64              `json:"timestamp"`
}
