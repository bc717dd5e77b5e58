package indexer

import (
	"errors"
	"fmt"
	"math"
)

// BlockRange is an inclusive span of blocks queried in one eth_getLogs call.
type BlockRange struct {
	From uint64
	To   uint64
}

// Len is the number of blocks in the range.
func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

var errZeroBatch = errors.New("batch size must be greater than zero")

// SplitRange cuts [from, to] into consecutive ranges of at most batchSize blocks.
// The last range may be shorter.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, errZeroBatch
	}
	if to < from {
		return nil, fmt.Errorf("invalid block range %d..%d", from, to)
	}

	span := to - from
	if span/batchSize == math.MaxUint64 {
		return nil, fmt.Errorf("block range %d..%d too large for batch size %d", from, to, batchSize)
	}
	count := span/batchSize + 1
	ranges := make([]BlockRange, 0, count)
	for i := uint64(0); i < count; i++ {
		start := from + i*batchSize
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
	}
	return ranges, nil
}
