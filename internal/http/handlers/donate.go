package handlers

import (
	"net/http"

	"donationScope/internal/model"
	"donationScope/internal/view"
)

type progressResponse struct {
	model.DonationState
	Text  string `json:"text"`
	Color string `json:"color"`
}

// DonateInfo describes the vault. The goal is read-only here; it is changed with
// the CLI only.
func (a *App) DonateInfo(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Session.Describe(r.Context()))
}

func (a *App) Progress(w http.ResponseWriter, r *http.Request) {
	state, err := a.Session.UpdateProgress(r.Context())
	if err != nil {
		a.error(w, http.StatusServiceUnavailable, "progress_unavailable", "could not read donation progress")
		return
	}
	a.json(w, http.StatusOK, progressResponse{
		DonationState: state,
		Text:          view.ProgressText(state.ReceivedEth, state.GoalEth, state.Percent),
		Color:         view.ProgressColor(state.Percent),
	})
}

// Refresh re-reads progress and the leaderboard and returns the resulting view.
func (a *App) Refresh(w http.ResponseWriter, r *http.Request) {
	a.Session.Init(r.Context())
	a.json(w, http.StatusOK, a.Session.Board().Snapshot())
}

func (a *App) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Session.RefreshLeaderboard(r.Context())
	if err != nil {
		a.error(w, http.StatusServiceUnavailable, "leaderboard_unavailable", "could not read donations")
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	a.json(w, http.StatusOK, map[string]any{
		"items": entries,
		"rows":  a.Session.Board().Snapshot().Leaderboard,
	})
}

func (a *App) View(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Session.Board().Snapshot())
}
