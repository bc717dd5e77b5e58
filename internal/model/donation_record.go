package model

// DonationRecord is the archived form of a DonationEvent.
type DonationRecord struct {
	Chain       string `json:"chain"`
	ChainID     uint64 `json:"chain_id"`
	Contract    string `json:"contract"`
	Donor       string `json:"donor"`
	AmountWei   string `json:"amount_wei"`
	AmountEth   string `json:"amount_eth"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Timestamp   uint64 `json:"timestamp"`
	IngestedAt  string `json:"ingested_at"`
}
