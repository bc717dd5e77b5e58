package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"donationScope/internal/model"
)

// JsonlStorage archives donation records as JSON lines. Like the donations
// table, a record is stored at most once per (chain id, contract, tx, log index).
type JsonlStorage struct {
	path string

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

func recordKey(r model.DonationRecord) string {
	return strconv.FormatUint(r.ChainID, 10) + "/" + r.Contract + "/" + r.TxHash + "/" + strconv.FormatUint(r.LogIndex, 10)
}

// ReadDonations loads every record in a JSONL archive. A missing file is empty.
func ReadDonations(path string) ([]model.DonationRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	var records []model.DonationRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var record model.DonationRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("archive %s line %d: %w", path, line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return records, nil
}

func (s *JsonlStorage) loadSeenLocked() error {
	if s.seen != nil {
		return nil
	}
	existing, err := ReadDonations(s.path)
	if err != nil {
		return err
	}
	s.seen = make(map[string]struct{}, len(existing))
	for _, record := range existing {
		s.seen[recordKey(record)] = struct{}{}
	}
	return nil
}

// PutDonationBatch appends records not yet in the archive.
func (s *JsonlStorage) PutDonationBatch(ctx context.Context, records []model.DonationRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadSeenLocked(); err != nil {
		return err
	}

	fresh := make([]model.DonationRecord, 0, len(records))
	for _, record := range records {
		key := recordKey(record)
		if _, ok := s.seen[key]; ok {
			continue
		}
		fresh = append(fresh, record)
	}
	if len(fresh) == 0 {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	for _, record := range fresh {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write donation %s: %w", record.TxHash, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}

	for _, record := range fresh {
		s.seen[recordKey(record)] = struct{}{}
	}
	return nil
}
