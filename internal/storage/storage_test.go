package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"donationScope/internal/model"
)

func TestFileKVPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "store.json")

	first := NewFileKV(path, nil)
	if err := first.Set(ctx, "donate-goal", "12.5"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := first.Set(ctx, "donations-sepolia-0xabc", `{"data":[],"timestamp":1}`); err != nil {
		t.Fatalf("set: %v", err)
	}

	second := NewFileKV(path, nil)
	value, ok, err := second.Get(ctx, "donate-goal")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if value != "12.5" {
		t.Fatalf("value mismatch: %s", value)
	}

	if err := second.Delete(ctx, "donate-goal"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := first.Get(ctx, "donate-goal"); ok {
		t.Fatalf("expected key deleted")
	}
	if _, ok, _ := first.Get(ctx, "donations-sepolia-0xabc"); !ok {
		t.Fatalf("unrelated key should survive")
	}
}

func TestFileKVCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	kv := NewFileKV(path, zap.New(core))
	if _, _, err := kv.Get(ctx, "x"); !errors.Is(err, ErrCorruptStore) {
		t.Fatalf("expected corrupt store error, got %v", err)
	}

	if err := kv.Set(ctx, "donate-goal", "12"); err != nil {
		t.Fatalf("set over corrupt file: %v", err)
	}
	value, ok, err := kv.Get(ctx, "donate-goal")
	if err != nil || !ok || value != "12" {
		t.Fatalf("get after recovery: %q ok=%v err=%v", value, ok, err)
	}

	kept, err := os.ReadFile(path + ".corrupt")
	if err != nil || string(kept) != "{not json" {
		t.Fatalf("corrupt file not kept aside: %q err=%v", kept, err)
	}
	if logs.FilterMessage("store file unreadable, starting a new one").Len() != 1 {
		t.Fatalf("expected one recovery warning, got %d logs", logs.Len())
	}
}

func TestJsonlStorageAppendsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "donations.jsonl")
	sink := NewJsonlStorage(path)
	ctx := context.Background()

	a := model.DonationRecord{ChainID: 11155111, Contract: "0xc", Donor: "0xa", AmountWei: "1", TxHash: "0x01", LogIndex: 0}
	b := model.DonationRecord{ChainID: 11155111, Contract: "0xc", Donor: "0xb", AmountWei: "2", TxHash: "0x01", LogIndex: 1}

	if err := sink.PutDonationBatch(ctx, []model.DonationRecord{a}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := sink.PutDonationBatch(ctx, []model.DonationRecord{a, b}); err != nil {
		t.Fatalf("put: %v", err)
	}
	// a fresh sink over the same file must not re-append either record
	if err := NewJsonlStorage(path).PutDonationBatch(ctx, []model.DonationRecord{b}); err != nil {
		t.Fatalf("put again: %v", err)
	}

	records, err := ReadDonations(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var donors []string
	for _, record := range records {
		donors = append(donors, record.Donor)
	}
	if len(donors) != 2 || donors[0] != "0xa" || donors[1] != "0xb" {
		t.Fatalf("unexpected donors: %v", donors)
	}
}

func TestReadDonations(t *testing.T) {
	dir := t.TempDir()

	records, err := ReadDonations(filepath.Join(dir, "missing.jsonl"))
	if err != nil || len(records) != 0 {
		t.Fatalf("missing archive: %v %v", records, err)
	}

	bad := filepath.Join(dir, "bad.jsonl")
	if err := os.WriteFile(bad, []byte("{\"donor\":\"0xa\"}\n\nnot json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadDonations(bad); err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line 3 parse error, got %v", err)
	}
}

func TestOpenKV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, dsn := range []string{"memory", "file:" + filepath.Join(dir, "kv.json"), "sqlite:" + filepath.Join(dir, "kv.db")} {
		kv, closeFn, err := OpenKV(ctx, dsn, nil)
		if err != nil {
			t.Fatalf("open %s: %v", dsn, err)
		}
		if err := kv.Set(ctx, "k", "v"); err != nil {
			t.Fatalf("%s set: %v", dsn, err)
		}
		value, ok, err := kv.Get(ctx, "k")
		if err != nil || !ok || value != "v" {
			t.Fatalf("%s get: %q ok=%v err=%v", dsn, value, ok, err)
		}
		closeFn()
	}

	if _, _, err := OpenKV(ctx, "redis://localhost", nil); err == nil {
		t.Fatalf("expected unsupported store error")
	}
}

func TestOpenSinkJsonl(t *testing.T) {
	sink, closeFn, err := OpenSink(context.Background(), "jsonl:"+filepath.Join(t.TempDir(), "a.jsonl"))
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	defer closeFn()
	if _, ok := sink.(*JsonlStorage); !ok {
		t.Fatalf("expected jsonl sink, got %T", sink)
	}
	if _, _, err := OpenSink(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty target")
	}
}
