package indexer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRange(t *testing.T) {
	tests := []struct {
		name      string
		from, to  uint64
		batchSize uint64
		want      []BlockRange
	}{
		{
			name: "uneven tail", from: 100, to: 105, batchSize: 4,
			want: []BlockRange{{From: 100, To: 103}, {From: 104, To: 105}},
		},
		{
			name: "exact batches", from: 0, to: 5, batchSize: 3,
			want: []BlockRange{{From: 0, To: 2}, {From: 3, To: 5}},
		},
		{
			name: "single block", from: 5, to: 5, batchSize: 2000,
			want: []BlockRange{{From: 5, To: 5}},
		},
		{
			name: "top of block space", from: math.MaxUint64 - 2, to: math.MaxUint64, batchSize: 2,
			want: []BlockRange{{From: math.MaxUint64 - 2, To: math.MaxUint64 - 1}, {From: math.MaxUint64, To: math.MaxUint64}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitRange(tt.from, tt.to, tt.batchSize)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			var total uint64
			for _, r := range got {
				total += r.Len()
			}
			assert.Equal(t, tt.to-tt.from+1, total)
		})
	}
}

func TestSplitRangeRejectsBadInput(t *testing.T) {
	_, err := SplitRange(10, 9, 1)
	assert.Error(t, err)

	_, err = SplitRange(1, 10, 0)
	assert.ErrorIs(t, err, errZeroBatch)

	// one block per batch over the whole block space needs 2^64 ranges
	_, err = SplitRange(0, math.MaxUint64, 1)
	assert.ErrorContains(t, err, "too large")
}
