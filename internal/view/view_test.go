package view

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donationScope/internal/model"
)

func TestProgressText(t *testing.T) {
	assert.Equal(t, "4.5000 / 9 ETH received — 50.0%", ProgressText(4.5, 9, 50))
	assert.Equal(t, "3.0000 / 9 ETH received — 33.3%", ProgressText(3, 9, 100.0/3))
	assert.Equal(t, "0.0000 / 2.5 ETH received — 0.0%", ProgressText(0, 2.5, 0))
}

func TestProgressColor(t *testing.T) {
	assert.Equal(t, "hsl(0.0, 85%, 44%)", ProgressColor(0))
	assert.Equal(t, "hsl(60.0, 85%, 44%)", ProgressColor(50))
	assert.Equal(t, "hsl(120.0, 85%, 44%)", ProgressColor(100))
	assert.Equal(t, "hsl(120.0, 85%, 44%)", ProgressColor(250))
	assert.Equal(t, "hsl(0.0, 85%, 44%)", ProgressColor(-3))
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x1E96...d164", ShortAddress("0x1E965D8002C4dd60B900A8DA21533a8482acd164"))
	assert.Equal(t, "0xabc", ShortAddress("0xabc"))
}

func TestBoardRendersTopTen(t *testing.T) {
	board := NewBoard()
	entries := make([]model.LeaderboardEntry, 0, 12)
	for i := 0; i < 12; i++ {
		entries = append(entries, model.LeaderboardEntry{
			Address:  fmt.Sprintf("0x%040d", i),
			TotalEth: float64(12 - i),
		})
	}

	board.RenderLeaderboard(entries)
	snap := board.Snapshot()
	require.Len(t, snap.Leaderboard, LeaderboardSize)
	assert.Equal(t, 1, snap.Leaderboard[0].Rank)
	assert.Equal(t, "12.0000", snap.Leaderboard[0].Amount)
	assert.Equal(t, "3.0000", snap.Leaderboard[9].Amount)
}

func TestBoardProgressAndSnapshotIsolation(t *testing.T) {
	board := NewBoard()
	board.RenderProgress(model.DonationState{ReceivedEth: 4.5, GoalEth: 9, Percent: 50})

	snap := board.Snapshot()
	require.NotNil(t, snap.Progress)
	assert.Equal(t, "50%", snap.Progress.Width)
	assert.Equal(t, "4.5000 / 9 ETH received — 50.0%", snap.Progress.Text)

	snap.Progress.Text = "mutated"
	assert.Equal(t, "4.5000 / 9 ETH received — 50.0%", board.Snapshot().Progress.Text)

	before := board.Snapshot().Version
	board.RenderStatus("Sending transaction...")
	assert.Greater(t, board.Snapshot().Version, before)
}
