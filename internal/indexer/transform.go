package indexer

import (
	"time"

	"donationScope/internal/ethunit"
	"donationScope/internal/model"
)

func buildDonationRecord(chainName string, chainID uint64, contract string, event model.DonationEvent, timestamp uint64, ingestedAt time.Time) model.DonationRecord {
	return model.DonationRecord{
		Chain:       chainName,
		ChainID:     chainID,
		Contract:    contract,
		Donor:       event.Donor.Hex(),
		AmountWei:   event.AmountWei.String(),
		AmountEth:   ethunit.FormatEther(event.AmountWei),
		BlockNumber: event.BlockNumber,
		TxHash:      event.TxHash.Hex(),
		LogIndex:    uint64(event.LogIndex),
		Timestamp:   timestamp,
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
	}
}
