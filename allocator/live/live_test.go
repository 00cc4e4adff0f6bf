package live

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeOverlaps(t *testing.T) {
	r := Range{Start: 4, End: 10}

	require.True(t, r.Overlaps(Range{Start: 0, End: 5}))
	require.True(t, r.Overlaps(Range{Start: 9, End: 20}))
	require.True(t, r.Overlaps(Range{Start: 5, End: 6}))

	// half-open: touching is not overlapping
	require.False(t, r.Overlaps(Range{Start: 10, End: 12}))
	require.False(t, r.Overlaps(Range{Start: 0, End: 4}))
}

func TestLiveRangeOverlaps(t *testing.T) {
	a := &LiveRange{Ranges: []Range{{0, 4}, {10, 14}, {20, 24}}}

	require.True(t, a.Overlaps(&LiveRange{Ranges: []Range{{12, 13}}}))
	require.True(t, a.Overlaps(&LiveRange{Ranges: []Range{{4, 10}, {23, 30}}}))

	// fits exactly into the holes
	require.False(t, a.Overlaps(&LiveRange{Ranges: []Range{{4, 10}, {14, 20}}}))
	require.False(t, a.Overlaps(&LiveRange{Ranges: []Range{{30, 40}}}))
	require.False(t, a.Overlaps(&LiveRange{}))
}

func TestLiveRangeOverlapsRange(t *testing.T) {
	a := &LiveRange{Ranges: []Range{{0, 4}, {10, 14}}}

	require.True(t, a.OverlapsRange(Range{Start: 3, End: 11}))
	require.False(t, a.OverlapsRange(Range{Start: 4, End: 10}))
	require.False(t, a.OverlapsRange(Range{Start: 14, End: 20}))
}

func TestLiveRangeBounds(t *testing.T) {
	a := &LiveRange{Ranges: []Range{{2, 4}, {10, 14}}}

	require.Equal(t, Point(2), a.Start())
	require.Equal(t, Point(14), a.End())
}

func TestUnspillable(t *testing.T) {
	require.True(t, (&LiveRange{Weight: math.Inf(1)}).Unspillable())
	require.False(t, (&LiveRange{Weight: 1e9}).Unspillable())
}
