package metrics

import "testing"

// BenchmarkCollector_ShotFired measures the overhead of recording a
// resolved fire (atomic operations).
func BenchmarkCollector_ShotFired(b *testing.B) {
	c := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.ShotFired(true, false)
	}
}

// BenchmarkCollector_Snapshot measures the cost of taking a snapshot.
func BenchmarkCollector_Snapshot(b *testing.B) {
	c := New()
	c.ConnectionOpened()
	c.SessionStarted()
	c.RecordError("test")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Snapshot()
	}
}
