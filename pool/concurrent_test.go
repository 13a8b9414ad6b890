package pool

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"unsafe"
)

// Test_Pool_ConcurrentTagIntegrity runs four goroutines through random
// allocate/deallocate churn with unique tags stamped into every live
// block. A clobbered tag means two live blocks overlapped.
func Test_Pool_ConcurrentTagIntegrity(t *testing.T) {
	const (
		workers = 4
		opsEach = 25000
	)

	type tagged struct {
		p   unsafe.Pointer
		n   int
		tag uint64
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(worker) + 1))
			var live []tagged

			check := func(tg tagged) error {
				if got := *(*uint64)(tg.p); got != tg.tag {
					return fmt.Errorf("worker %d: tag clobbered: want %#x got %#x", worker, tg.tag, got)
				}
				return nil
			}

			for i := 0; i < opsEach; i++ {
				n := (rng.Intn(32) + 1) * 8 // 8..256 bytes
				p := Allocate(n)
				if p == nil {
					errs <- fmt.Errorf("worker %d: allocate(%d) returned nil", worker, n)
					return
				}
				tag := uint64(worker)<<48 | uint64(i)<<8 | 0x5A
				*(*uint64)(p) = tag

				if rng.Intn(4) != 0 { // 75%: release immediately
					if got := *(*uint64)(p); got != tag {
						errs <- fmt.Errorf("worker %d: fresh tag clobbered", worker)
						return
					}
					Deallocate(p, n)
					continue
				}
				live = append(live, tagged{p, n, tag})

				// Occasionally retire a random survivor.
				if len(live) > 64 {
					j := rng.Intn(len(live))
					if err := check(live[j]); err != nil {
						errs <- err
						return
					}
					Deallocate(live[j].p, live[j].n)
					live[j] = live[len(live)-1]
					live = live[:len(live)-1]
				}
			}

			for _, tg := range live {
				if err := check(tg); err != nil {
					errs <- err
					return
				}
				Deallocate(tg.p, tg.n)
			}
		}(w)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

// Test_Pool_ConcurrentMixedSizes drives all three layers at once: small
// classes, near-ceiling classes and bypass sizes from every worker.
func Test_Pool_ConcurrentMixedSizes(t *testing.T) {
	sizes := []int{8, 96, 1024, 32 * 1024, 256 * 1024, 300 * 1024}

	var wg sync.WaitGroup
	errs := make(chan error, len(sizes))
	for _, n := range sizes {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				p := Allocate(n)
				if p == nil {
					errs <- fmt.Errorf("allocate(%d) returned nil", n)
					return
				}
				*(*byte)(p) = byte(i)
				Deallocate(p, n)
			}
		}(n)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
