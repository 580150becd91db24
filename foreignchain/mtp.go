package foreignchain

import (
	"context"
	"fmt"
	"sort"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/swaperr"
)

// headerTimestampOffset is the byte offset of a block header's timestamp
// field under the legacy 80-byte-class header layout (version 4 bytes +
// prevBlockHash 32 bytes + merkleRoot 32 bytes = 68). Networks using a
// different header format must supply their own offset; this module
// targets the Bitcoin-legacy layout only.
const headerTimestampOffset = 68

// requiredHeaderCount is the number of trailing headers median-time-past
// is defined over.
const requiredHeaderCount = 11

// medianIndex is the position of the median once the window is sorted
// descending (the 6th of 11, index 5).
const medianIndex = 5

// MedianTimePast fetches the latest requiredHeaderCount raw block headers
// from p and returns their median timestamp, per spec.md's refund-safety
// rule: a refund may not be broadcast before both now and the HTLC's
// lockTime have passed MTP.
func MedianTimePast(ctx context.Context, p BlockchainProvider) (int64, error) {
	headers, err := p.GetRawBlockHeaders(ctx, requiredHeaderCount)
	if err != nil {
		return 0, swaperr.ForeignBlockchainError(err)
	}
	if len(headers) < requiredHeaderCount {
		return 0, swaperr.ForeignBlockchainError(errNotEnoughHeaders(len(headers)))
	}

	timestamps := make([]int64, 0, len(headers))
	for _, h := range headers {
		if len(h) < headerTimestampOffset+4 {
			return 0, swaperr.InvalidInput("foreignchain: raw header too short to contain a timestamp")
		}
		ts := atcodec.FromLE32(h, headerTimestampOffset)
		timestamps = append(timestamps, int64(ts))
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] > timestamps[j] })
	return timestamps[medianIndex], nil
}

type errNotEnoughHeaders int

func (e errNotEnoughHeaders) Error() string {
	return fmt.Sprintf("foreignchain: need %d headers for median-time-past, got %d", requiredHeaderCount, int(e))
}
