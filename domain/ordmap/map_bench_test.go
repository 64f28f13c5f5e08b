package ordmap_test

import (
	"encoding/binary"
	"sync/atomic"
	"testing"

	"rbstore/domain/ordmap"
)

func benchKey(i uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], i*0x9E3779B97F4A7C15)
	return b[:]
}

func BenchmarkMapPut(b *testing.B) {
	m := ordmap.New()
	val := []byte("value")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Put(benchKey(uint64(i)), val)
	}
}

func BenchmarkMapGetParallel(b *testing.B) {
	m := ordmap.New()
	const n = 1 << 16
	for i := uint64(0); i < n; i++ {
		_ = m.Put(benchKey(i), []byte("v"))
	}
	var ctr atomic.Uint64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := ctr.Add(1) % n
			if _, ok := m.Get(benchKey(i)); !ok {
				b.Fatal("missing key")
			}
		}
	})
}

func BenchmarkMapMixedParallel(b *testing.B) {
	m := ordmap.New()
	var ctr atomic.Uint64
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := ctr.Add(1)
			if i%10 == 0 {
				_ = m.Put(benchKey(i), []byte("v"))
			} else {
				m.Get(benchKey(i - 1))
			}
		}
	})
}
