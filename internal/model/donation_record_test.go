package model

import (
	"encoding/json"
	"testing"
)

func TestDonationRecordJSONStringAmounts(t *testing.T) {
	record := DonationRecord{
		Chain:       "sepolia",
		ChainID:     11155111,
		Contract:    "0x1111111111111111111111111111111111111111",
		Donor:       "0x2222222222222222222222222222222222222222",
		AmountWei:   "1500000000000000000",
		AmountEth:   "1.5",
		BlockNumber: 100,
		TxHash:      "0xdef456",
		LogIndex:    3,
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["amount_wei"].(string); !ok {
		t.Fatalf("amount_wei should be string")
	}
	if _, ok := decoded["amount_eth"].(string); !ok {
		t.Fatalf("amount_eth should be string")
	}
}

func TestLeaderboardCacheRecordFieldNames(t *testing.T) {
	data, err := json.Marshal(LeaderboardCacheRecord{
		Data:      []LeaderboardEntry{{Address: "0xabc", TotalEth: 2}},
		Timestamp: 1700000000000,
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"data":[{"address":"0xabc","amount":2}],"timestamp":1700000000000}`
	if string(data) != want {
		t.Fatalf("json mismatch: %s != %s", data, want)
	}
}
