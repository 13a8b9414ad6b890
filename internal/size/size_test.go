package size

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_Size_RoundTrip checks the class math agrees with itself over the
// whole serviced range: rounding up lands exactly on the class size.
func Test_Size_RoundTrip(t *testing.T) {
	for n := 1; n <= MaxBytes; n++ {
		r := RoundUp(n)
		if r != BlockSize(Index(n)) {
			t.Fatalf("n=%d: RoundUp=%d, BlockSize(Index)=%d", n, r, BlockSize(Index(n)))
		}
		if r < n {
			t.Fatalf("n=%d: RoundUp=%d shrank the request", n, r)
		}
		if r%Alignment != 0 {
			t.Fatalf("n=%d: RoundUp=%d not aligned", n, r)
		}
	}
}

func Test_Size_IndexBounds(t *testing.T) {
	require.Equal(t, 0, Index(1))
	require.Equal(t, 0, Index(Alignment))
	require.Equal(t, 1, Index(Alignment+1))
	require.Equal(t, NumClasses-1, Index(MaxBytes))
}

func Test_Size_BlockSizeProgression(t *testing.T) {
	require.Equal(t, Alignment, BlockSize(0))
	require.Equal(t, MaxBytes, BlockSize(NumClasses-1))
	for i := 1; i < NumClasses; i++ {
		require.Equal(t, Alignment, BlockSize(i)-BlockSize(i-1))
	}
}

func Test_Size_Pages(t *testing.T) {
	require.Equal(t, 1, Pages(0))
	require.Equal(t, 1, Pages(1))
	require.Equal(t, 1, Pages(PageSize))
	require.Equal(t, 2, Pages(PageSize+1))
	require.Equal(t, 256, Pages(1024*1024))
}

// Test_Size_BatchBounds checks, over randomly sampled classes, that each
// gets a positive, bounded batch and that the per-refill byte volume stays
// within a sane envelope.
func Test_Size_BatchBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10000; trial++ {
		i := rng.Intn(NumClasses)
		sz := BlockSize(i)
		b := BatchFor(sz)
		require.GreaterOrEqual(t, b, 1, "class %d", i)
		require.LessOrEqual(t, b, 512, "class %d", i)
		require.LessOrEqual(t, b*sz, 1024*1024, "class %d moves too many bytes per refill", i)
	}
}

func Test_Size_ReturnThresholdFinite(t *testing.T) {
	for _, i := range []int{0, 1, 7, 31, 127, 511, 2047, NumClasses - 1} {
		th := ReturnThreshold(i)
		require.Greater(t, th, 0)
		require.Equal(t, BatchFor(BlockSize(i)), th)
	}
}
