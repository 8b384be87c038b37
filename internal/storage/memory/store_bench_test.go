package memory

import (
	"strconv"
	"testing"
)

func BenchmarkStore_Insert(b *testing.B) {
	s := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Insert(strconv.Itoa(i), "value")
	}
}

func BenchmarkStore_Lookup(b *testing.B) {
	s := New()
	for i := 0; i < 10000; i++ {
		s.Insert(strconv.Itoa(i), "value")
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = s.Lookup(strconv.Itoa(i % 10000))
			i++
		}
	})
}

func BenchmarkStore_Snapshot(b *testing.B) {
	s := New()
	for i := 0; i < 10000; i++ {
		s.Insert(strconv.Itoa(i), "value")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Snapshot()
	}
}
