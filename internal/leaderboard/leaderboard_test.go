package leaderboard

import (
	"context"
	"encoding/json"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donationScope/internal/chain"
	"donationScope/internal/chain/chaintest"
	"donationScope/internal/indexer"
	"donationScope/internal/model"
	"donationScope/internal/storage"
	"donationScope/internal/vault"
)

var (
	contract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	donorA   = common.HexToAddress("0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa")
	donorB   = common.HexToAddress("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB")
	donorC   = common.HexToAddress("0xcCCCcCCCCCccCCCccCcccCCccCCCcCCcCCcCCcCc")
)

type recorder struct {
	calls   int
	entries []model.LeaderboardEntry
}

func (r *recorder) RenderLeaderboard(entries []model.LeaderboardEntry) {
	r.calls++
	r.entries = entries
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newCache(t *testing.T, kv storage.KV, primary, fb *chaintest.Backend, clk *clock, r Renderer) *Cache {
	t.Helper()
	v, err := vault.New(contract)
	require.NoError(t, err)

	backends := map[string]*chaintest.Backend{}
	if primary != nil {
		backends["primary"] = primary
	}
	if fb != nil {
		backends["fallback"] = fb
	}
	pool := chain.NewPool(chain.Endpoints{Primary: "primary", Fallback: "fallback"}, chaintest.Dialer(backends), nil)
	scanner := indexer.NewScanner(indexer.ScanConfig{BatchSize: 1000}, v, nil)
	return New(kv, pool, scanner, Options{
		Chain:    "sepolia",
		Contract: contract.Hex(),
		Now:      clk.Now,
	}, r, nil)
}

func donationLogs() []types.Log {
	return []types.Log{
		chaintest.DonationLog(contract, donorA, chaintest.Ether("1.0"), 10, 0),
		chaintest.DonationLog(contract, donorB, chaintest.Ether("2.0"), 11, 0),
		chaintest.DonationLog(contract, donorA, chaintest.Ether("0.5"), 12, 0),
	}
}

func TestAggregateIgnoresFetchOrder(t *testing.T) {
	events := []model.DonationEvent{
		{Donor: donorA, AmountWei: chaintest.Ether("1.0")},
		{Donor: donorB, AmountWei: chaintest.Ether("2.0")},
		{Donor: donorC, AmountWei: chaintest.Ether("0.75")},
		{Donor: donorA, AmountWei: chaintest.Ether("0.5")},
		{Donor: donorC, AmountWei: chaintest.Ether("0.75")},
		{Donor: donorB, AmountWei: chaintest.Ether("0.000000000000000001")},
	}

	reversed := slices.Clone(events)
	slices.Reverse(reversed)
	shuffled := slices.Clone(events)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	summarize := func(entries []model.LeaderboardEntry) ([]float64, map[string]float64) {
		totals := make([]float64, 0, len(entries))
		byDonor := make(map[string]float64, len(entries))
		for _, e := range entries {
			totals = append(totals, e.TotalEth)
			byDonor[e.Address] = e.TotalEth
		}
		return totals, byDonor
	}

	wantTotals, wantByDonor := summarize(Aggregate(events))
	assert.Equal(t, []float64{2, 1.5, 1.5}, wantTotals)

	for name, ordering := range map[string][]model.DonationEvent{"reversed": reversed, "shuffled": shuffled} {
		totals, byDonor := summarize(Aggregate(ordering))
		assert.Equal(t, wantTotals, totals, name)
		assert.Equal(t, wantByDonor, byDonor, name)
	}
}

func TestAggregateSortsByTotal(t *testing.T) {
	events := []model.DonationEvent{
		{Donor: donorA, AmountWei: chaintest.Ether("1.0")},
		{Donor: donorB, AmountWei: chaintest.Ether("2.0")},
		{Donor: donorA, AmountWei: chaintest.Ether("0.5")},
	}

	entries := Aggregate(events)
	require.Len(t, entries, 2)
	assert.Equal(t, model.LeaderboardEntry{Address: donorB.Hex(), TotalEth: 2.0}, entries[0])
	assert.Equal(t, model.LeaderboardEntry{Address: donorA.Hex(), TotalEth: 1.5}, entries[1])
}

func TestAggregateKeepsFirstSeenOrderOnTies(t *testing.T) {
	events := []model.DonationEvent{
		{Donor: donorC, AmountWei: chaintest.Ether("1")},
		{Donor: donorA, AmountWei: chaintest.Ether("1")},
		{Donor: donorB, AmountWei: chaintest.Ether("3")},
	}

	entries := Aggregate(events)
	require.Len(t, entries, 3)
	assert.Equal(t, donorB.Hex(), entries[0].Address)
	assert.Equal(t, donorC.Hex(), entries[1].Address)
	assert.Equal(t, donorA.Hex(), entries[2].Address)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "donations-sepolia-0xabc", CacheKey("sepolia", "0xabc"))
}

func TestFetchScansAndCaches(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	primary := &chaintest.Backend{Latest: 100, Logs: donationLogs()}
	clk := &clock{now: time.UnixMilli(1_700_000_000_000)}
	r := &recorder{}
	cache := newCache(t, kv, primary, nil, clk, r)

	entries, err := cache.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 1, primary.LogScans())

	raw, ok, err := kv.Get(ctx, "donations-sepolia-"+contract.Hex())
	require.NoError(t, err)
	require.True(t, ok)
	var record model.LeaderboardCacheRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	assert.Equal(t, int64(1_700_000_000_000), record.Timestamp)
	assert.Equal(t, entries, record.Data)

	// Just under the TTL the cached copy is served without a scan.
	clk.now = clk.now.Add(DefaultTTL - time.Millisecond)
	_, err = cache.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.LogScans())
	assert.Equal(t, 2, r.calls)

	// At the TTL the entry is stale and the logs are read again.
	clk.now = time.UnixMilli(1_700_000_000_000).Add(DefaultTTL)
	_, err = cache.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, primary.LogScans())
}

func TestFetchServesFreshCacheWithoutNetwork(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	clk := &clock{now: time.UnixMilli(1_700_000_000_000)}
	record := model.LeaderboardCacheRecord{
		Data:      []model.LeaderboardEntry{{Address: donorC.Hex(), TotalEth: 4}},
		Timestamp: clk.now.Add(-time.Minute).UnixMilli(),
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, CacheKey("sepolia", contract.Hex()), string(data)))

	r := &recorder{}
	cache := newCache(t, kv, nil, nil, clk, r)
	entries, err := cache.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.Data, entries)
	assert.Equal(t, record.Data, r.entries)
}

func TestFetchTreatsCorruptCacheAsMiss(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, CacheKey("sepolia", contract.Hex()), "{not json"))
	primary := &chaintest.Backend{Latest: 100, Logs: donationLogs()}
	cache := newCache(t, kv, primary, nil, &clock{now: time.Now()}, nil)

	entries, err := cache.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, primary.LogScans())
}

func TestFetchUsesFallbackEndpoint(t *testing.T) {
	ctx := context.Background()
	primary := &chaintest.Backend{LatestErr: assert.AnError}
	fb := &chaintest.Backend{Latest: 100, Logs: donationLogs()}
	r := &recorder{}
	cache := newCache(t, storage.NewMemoryKV(), primary, fb, &clock{now: time.Now()}, r)

	entries, err := cache.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 1, fb.LogScans())
}

func TestFetchFailureLeavesLeaderboardUnrendered(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	primary := &chaintest.Backend{LatestErr: assert.AnError}
	fb := &chaintest.Backend{LatestErr: assert.AnError}
	r := &recorder{}
	cache := newCache(t, kv, primary, fb, &clock{now: time.Now()}, r)

	_, err := cache.Fetch(ctx)
	require.Error(t, err)
	assert.Zero(t, r.calls)

	_, ok, err := kv.Get(ctx, cache.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateForcesRescan(t *testing.T) {
	ctx := context.Background()
	primary := &chaintest.Backend{Latest: 100, Logs: donationLogs()}
	cache := newCache(t, storage.NewMemoryKV(), primary, nil, &clock{now: time.Now()}, nil)

	_, err := cache.Fetch(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))
	_, err = cache.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, primary.LogScans())
}
