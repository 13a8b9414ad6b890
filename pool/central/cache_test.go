package central

import (
	"fmt"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/block"
	"github.com/joshuapare/poolkit/internal/size"
	"github.com/joshuapare/poolkit/pool/pages"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return New(pages.New())
}

// listLen walks a fetched list and checks it is nil-terminated.
func listLen(head unsafe.Pointer) int {
	return block.Len(head)
}

func Test_Central_FetchBatch(t *testing.T) {
	c := newTestCache(t)

	head, n, err := c.FetchRange(0, 10)
	require.NoError(t, err)
	require.NotNil(t, head)
	require.Equal(t, 10, n)
	require.Equal(t, 10, listLen(head))

	// The refill carved a whole span; the surplus serves the next fetch
	// without touching the page layer again.
	head2, n2, err := c.FetchRange(0, 10)
	require.NoError(t, err)
	require.Equal(t, 10, n2)
	require.NotNil(t, head2)
	require.Equal(t, int64(1), c.GetStats().Refills)
}

// Test_Central_ShortBatch: the largest class carves exactly one block per
// span, so a batch of two comes back as one. Callers must tolerate that.
func Test_Central_ShortBatch(t *testing.T) {
	c := newTestCache(t)
	idx := size.NumClasses - 1 // 256 KiB blocks

	head, n, err := c.FetchRange(idx, 2)
	require.NoError(t, err)
	require.NotNil(t, head)
	require.Equal(t, 1, n)
	require.Nil(t, block.Next(head))
}

// Test_Central_ReturnKeepsWholeList returns a long list and checks nothing
// was truncated: every block comes back out without another refill.
func Test_Central_ReturnKeepsWholeList(t *testing.T) {
	c := newTestCache(t)

	head, n, err := c.FetchRange(0, 600)
	require.NoError(t, err)
	require.Equal(t, 600, n)

	c.ReturnRange(head, 0)
	require.Equal(t, int64(600), c.GetStats().BlocksBack)

	again, n2, err := c.FetchRange(0, 600)
	require.NoError(t, err)
	require.Equal(t, 600, n2)
	require.Equal(t, 600, listLen(again))
	require.Equal(t, int64(1), c.GetStats().Refills, "returned blocks must satisfy the refetch")
}

func Test_Central_BadArgs(t *testing.T) {
	c := newTestCache(t)

	_, _, err := c.FetchRange(-1, 4)
	require.ErrorIs(t, err, ErrBadIndex)
	_, _, err = c.FetchRange(size.NumClasses, 4)
	require.ErrorIs(t, err, ErrBadIndex)
	_, _, err = c.FetchRange(0, 0)
	require.ErrorIs(t, err, ErrBadBatch)

	// Nil or out-of-range returns are swallowed.
	c.ReturnRange(nil, 0)
	c.ReturnRange(nil, size.NumClasses)
	require.Equal(t, int64(0), c.GetStats().Returns)
}

// Test_Central_ConcurrentOneClass hammers a single class lock from many
// goroutines; every fetched list must hold exactly the reported count and
// every block must survive the round trip.
func Test_Central_ConcurrentOneClass(t *testing.T) {
	c := newTestCache(t)
	idx := size.Index(64)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for iter := 0; iter < 200; iter++ {
				head, n, err := c.FetchRange(idx, 16)
				if err != nil {
					errs <- err
					return
				}
				if got := listLen(head); got != n {
					errs <- fmt.Errorf("fetched list holds %d blocks, reported %d", got, n)
					return
				}
				c.ReturnRange(head, idx)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent fetch/return failed: %v", err)
	}

	st := c.GetStats()
	require.Equal(t, st.BlocksOut, st.BlocksBack, "all blocks must come home")
}
