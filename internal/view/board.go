// Package view holds the rendered state of the donation widget.
package view

import (
	"fmt"
	"sync"

	"donationScope/internal/model"
)

// LeaderboardSize is the number of rows rendered.
const LeaderboardSize = 10

// Renderer receives display updates. Writes are last-write-wins.
type Renderer interface {
	RenderProgress(state model.DonationState)
	RenderLeaderboard(entries []model.LeaderboardEntry)
	RenderStatus(text string)
	RenderTxLink(url string)
	RenderChain(chainName, contractURL, contractLabel string)
	RenderWallet(label string, connected bool)
	FocusAmount()
}

// Progress is the rendered progress bar.
type Progress struct {
	Width string `json:"width"`
	Color string `json:"color"`
	Text  string `json:"text"`
}

// LeaderboardRow is one rendered leaderboard line.
type LeaderboardRow struct {
	Rank    int    `json:"rank"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// Snapshot is a copy of everything on the widget.
type Snapshot struct {
	Chain         string           `json:"chain"`
	ContractURL   string           `json:"contract_url"`
	ContractLabel string           `json:"contract_label"`
	Progress      *Progress        `json:"progress,omitempty"`
	Leaderboard   []LeaderboardRow `json:"leaderboard,omitempty"`
	Status        string           `json:"status"`
	TxLink        string           `json:"tx_link,omitempty"`
	ConnectLabel  string           `json:"connect_label"`
	Connected     bool             `json:"connected"`
	AmountFocused bool             `json:"amount_focused"`
	Version       uint64           `json:"version"`
}

// Board is a concurrency-safe Renderer that keeps the latest widget state.
type Board struct {
	mu    sync.RWMutex
	state Snapshot
}

var _ Renderer = (*Board)(nil)

func NewBoard() *Board {
	return &Board{state: Snapshot{ConnectLabel: "Connect wallet"}}
}

func (b *Board) RenderProgress(state model.DonationState) {
	progress := &Progress{
		Width: fmt.Sprintf("%g%%", state.Percent),
		Color: ProgressColor(state.Percent),
		Text:  ProgressText(state.ReceivedEth, state.GoalEth, state.Percent),
	}
	b.update(func(s *Snapshot) { s.Progress = progress })
}

func (b *Board) RenderLeaderboard(entries []model.LeaderboardEntry) {
	n := len(entries)
	if n > LeaderboardSize {
		n = LeaderboardSize
	}
	rows := make([]LeaderboardRow, 0, n)
	for i, entry := range entries[:n] {
		rows = append(rows, LeaderboardRow{
			Rank:    i + 1,
			Address: ShortAddress(entry.Address),
			Amount:  fmt.Sprintf("%.4f", entry.TotalEth),
		})
	}
	b.update(func(s *Snapshot) { s.Leaderboard = rows })
}

func (b *Board) RenderStatus(text string) {
	b.update(func(s *Snapshot) { s.Status = text })
}

func (b *Board) RenderTxLink(url string) {
	b.update(func(s *Snapshot) { s.TxLink = url })
}

func (b *Board) RenderChain(chainName, contractURL, contractLabel string) {
	b.update(func(s *Snapshot) {
		s.Chain = chainName
		s.ContractURL = contractURL
		s.ContractLabel = contractLabel
	})
}

func (b *Board) RenderWallet(label string, connected bool) {
	b.update(func(s *Snapshot) {
		s.ConnectLabel = label
		s.Connected = connected
	})
}

func (b *Board) FocusAmount() {
	b.update(func(s *Snapshot) { s.AmountFocused = true })
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := b.state
	if b.state.Progress != nil {
		p := *b.state.Progress
		out.Progress = &p
	}
	if b.state.Leaderboard != nil {
		out.Leaderboard = append([]LeaderboardRow(nil), b.state.Leaderboard...)
	}
	return out
}

func (b *Board) update(fn func(s *Snapshot)) {
	b.mu.Lock()
	fn(&b.state)
	b.state.Version++
	b.mu.Unlock()
}
