package indexer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"

	"donationScope/internal/chain/chaintest"
	"donationScope/internal/model"
)

type memorySink struct {
	records []model.DonationRecord
}

func (m *memorySink) PutDonationBatch(_ context.Context, records []model.DonationRecord) error {
	m.records = append(m.records, records...)
	return nil
}

func TestRunnerArchivesAndResumes(t *testing.T) {
	backend := &chaintest.Backend{
		Latest: 120,
		Logs: []types.Log{
			chaintest.DonationLog(testContract, donorA, chaintest.Ether("1.0"), 101, 0),
			chaintest.DonationLog(testContract, donorB, chaintest.Ether("2.0"), 115, 0),
		},
	}
	sink := &memorySink{}
	cfg := RunConfig{
		Chain:             "sepolia",
		ChainID:           11155111,
		DeploymentBlock:   100,
		BatchSize:         10,
		CheckpointPath:    filepath.Join(t.TempDir(), "checkpoint.json"),
		CheckpointEnabled: true,
	}

	runner := NewRunner(cfg, backend, newTestScanner(t, 10), sink, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(sink.records))
	}
	first := sink.records[0]
	if first.Donor != donorA.Hex() || first.AmountEth != "1" || first.AmountWei != "1000000000000000000" {
		t.Fatalf("record mismatch: %+v", first)
	}
	if first.Timestamp == 0 || first.Contract != testContract.Hex() {
		t.Fatalf("record metadata missing: %+v", first)
	}

	backend.Logs = append(backend.Logs, chaintest.DonationLog(testContract, donorA, chaintest.Ether("0.5"), 125, 0))
	backend.Latest = 130
	runner = NewRunner(cfg, backend, newTestScanner(t, 10), sink, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(sink.records) != 3 {
		t.Fatalf("expected resume to add exactly 1 record, got %d total", len(sink.records))
	}
}

func TestRunnerRequiresDependencies(t *testing.T) {
	runner := NewRunner(RunConfig{BatchSize: 10}, nil, nil, nil, nil)
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func TestRunnerIgnoresCheckpointOfAnotherVault(t *testing.T) {
	backend := &chaintest.Backend{
		Latest: 120,
		Logs: []types.Log{
			chaintest.DonationLog(testContract, donorA, chaintest.Ether("1.0"), 101, 0),
		},
	}
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := NewCheckpointStore(path, CheckpointScope("mainnet", testContract.Hex()), true).Save(119); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	sink := &memorySink{}
	cfg := RunConfig{
		Chain:             "sepolia",
		DeploymentBlock:   100,
		BatchSize:         50,
		CheckpointPath:    path,
		CheckpointEnabled: true,
	}
	if err := NewRunner(cfg, backend, newTestScanner(t, 50), sink, nil).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected the foreign checkpoint to be ignored, got %d records", len(sink.records))
	}

	cp, ok, err := NewCheckpointStore(path, CheckpointScope("sepolia", testContract.Hex()), true).Load()
	if err != nil || !ok || cp.LastProcessedBlock != 120 {
		t.Fatalf("checkpoint not rewritten for this vault: %+v ok=%v err=%v", cp, ok, err)
	}
}
