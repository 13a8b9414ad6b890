package pool

import (
	"testing"
	"unsafe"
)

// Spread sizes mirror common small-object traffic.
var benchSizes = []int{32, 64, 128, 256, 512}

func Benchmark_Pool_SmallAlloc(b *testing.B) {
	for i := 0; i < b.N; i++ {
		p := Allocate(32)
		Deallocate(p, 32)
	}
}

func Benchmark_New_SmallAlloc(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := make([]byte, 32)
		_ = buf
	}
}

func Benchmark_Pool_SizeSpread(b *testing.B) {
	for i := 0; i < b.N; i++ {
		n := benchSizes[i%len(benchSizes)]
		p := Allocate(n)
		Deallocate(p, n)
	}
}

func Benchmark_Pool_SmallAllocParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p := Allocate(64)
			Deallocate(p, 64)
		}
	})
}

func Benchmark_Pool_LargeBypass(b *testing.B) {
	const n = 1024 * 1024
	for i := 0; i < b.N; i++ {
		p := Allocate(n)
		*(*byte)(p) = 1
		Deallocate(p, n)
	}
}

func Benchmark_Pool_Churn(b *testing.B) {
	const depth = 256
	ptrs := make([]unsafe.Pointer, depth)
	for i := 0; i < b.N; i++ {
		slot := i % depth
		if ptrs[slot] != nil {
			Deallocate(ptrs[slot], 128)
		}
		ptrs[slot] = Allocate(128)
	}
	for _, p := range ptrs {
		if p != nil {
			Deallocate(p, 128)
		}
	}
}
