package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donationScope/internal/chain"
	"donationScope/internal/chain/chaintest"
	"donationScope/internal/donate"
	"donationScope/internal/http/handlers"
	"donationScope/internal/storage"
)

const contractHex = "0x1E965D8002C4dd60B900A8DA21533a8482acd164"

func newServer(t *testing.T, backend *chaintest.Backend) (*httptest.Server, *donate.Session) {
	t.Helper()
	pool := chain.NewPool(chain.Endpoints{Primary: "primary"}, chaintest.Dialer(map[string]*chaintest.Backend{"primary": backend}), nil)
	session, err := donate.NewSession(context.Background(), donate.Settings{
		Chain:     "sepolia",
		Contract:  contractHex,
		GoalEth:   9,
		BatchSize: 1000,
	}, pool, storage.NewMemoryKV(), nil, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(handlers.NewApp(session, nil, "", nil), nil))
	t.Cleanup(srv.Close)
	return srv, session
}

func getJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func donationBackend() *chaintest.Backend {
	contract := common.HexToAddress(contractHex)
	donor := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	return &chaintest.Backend{
		Latest: 100,
		CallFn: chaintest.VaultReads(chaintest.Ether("4.5"), chaintest.Ether("100"), donor),
		Logs: []types.Log{
			chaintest.DonationLog(contract, donor, chaintest.Ether("4.5"), 10, 0),
		},
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t, &chaintest.Backend{})
	var out map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, http.MethodGet, srv.URL+"/v1/healthz", "", &out))
	assert.Equal(t, "ok", out["status"])
}

func TestProgressRoute(t *testing.T) {
	srv, _ := newServer(t, donationBackend())
	var out map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, http.MethodGet, srv.URL+"/api/donate/progress", "", &out))
	assert.Equal(t, "4.5000 / 9 ETH received — 50.0%", out["text"])
	assert.Equal(t, "hsl(60.0, 85%, 44%)", out["color"])
	assert.Equal(t, "totalReceived", out["source"])
}

func TestProgressUnavailable(t *testing.T) {
	srv, _ := newServer(t, &chaintest.Backend{LatestErr: assert.AnError})
	var out map[string]any
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, http.MethodGet, srv.URL+"/api/donate/progress", "", &out))
	assert.Equal(t, "progress_unavailable", out["error"])
}

func TestLeaderboardRoute(t *testing.T) {
	srv, _ := newServer(t, donationBackend())
	var out struct {
		Items []struct {
			Address string  `json:"address"`
			Amount  float64 `json:"amount"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, http.MethodGet, srv.URL+"/api/donate/leaderboard", "", &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, 4.5, out.Items[0].Amount)
}

func TestGoalIsNotWritableOverHTTP(t *testing.T) {
	srv, session := newServer(t, donationBackend())

	for _, method := range []string{http.MethodPut, http.MethodPost} {
		status := getJSON(t, method, srv.URL+"/api/donate/goal", `{"goal":"18"}`, nil)
		assert.Equal(t, http.StatusNotFound, status, method)
	}
	assert.Equal(t, 9.0, session.Goal())

	var info donate.Info
	require.Equal(t, http.StatusOK, getJSON(t, http.MethodGet, srv.URL+"/api/donate", "", &info))
	assert.Equal(t, 9.0, info.Goal)
}

func TestRefreshAndViewRoutes(t *testing.T) {
	srv, _ := newServer(t, donationBackend())

	var refreshed map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, http.MethodPost, srv.URL+"/api/donate/progress/refresh", "", &refreshed))
	assert.Equal(t, "Sepolia", refreshed["chain"])

	var view struct {
		Progress struct {
			Text string `json:"text"`
		} `json:"progress"`
		Leaderboard []map[string]any `json:"leaderboard"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, http.MethodGet, srv.URL+"/api/donate/view", "", &view))
	assert.Equal(t, "4.5000 / 9 ETH received — 50.0%", view.Progress.Text)
	assert.Len(t, view.Leaderboard, 1)

	var info donate.Info
	require.Equal(t, http.StatusOK, getJSON(t, http.MethodGet, srv.URL+"/api/donate", "", &info))
	assert.Equal(t, contractHex, info.Contract)
	assert.Equal(t, common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").Hex(), info.Beneficiary)
	assert.Equal(t, 100.0, info.HardCap)
}
