package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("store-a")

	c.IncEventsReceived()
	c.IncEventsReceived()
	c.IncSanitizationFailure()
	c.IncEvicted()
	c.IncEvicted()
	c.IncEvicted()
	c.IncCapacityOverflow()
	c.IncAdapterMisuse()
	c.IncSnapshotSuccess()
	c.IncSnapshotFailure()
	c.IncRestoreSuccess()
	c.IncRestoreFailure()
	c.SetCriticalRetained(4)

	s := c.Snapshot()

	if s.EventsReceived != 2 {
		t.Errorf("EventsReceived = %d, want 2", s.EventsReceived)
	}
	if s.EventsSanitizationFailures != 1 {
		t.Errorf("EventsSanitizationFailures = %d, want 1", s.EventsSanitizationFailures)
	}
	if s.EventsEvicted != 3 {
		t.Errorf("EventsEvicted = %d, want 3", s.EventsEvicted)
	}
	if s.CapacityOverflow != 1 {
		t.Errorf("CapacityOverflow = %d, want 1", s.CapacityOverflow)
	}
	if s.AdapterMisuseDrops != 1 {
		t.Errorf("AdapterMisuseDrops = %d, want 1", s.AdapterMisuseDrops)
	}
	if s.SnapshotSuccess != 1 || s.SnapshotFailure != 1 {
		t.Errorf("SnapshotSuccess/Failure = %d/%d, want 1/1", s.SnapshotSuccess, s.SnapshotFailure)
	}
	if s.RestoreSuccess != 1 || s.RestoreFailure != 1 {
		t.Errorf("RestoreSuccess/Failure = %d/%d, want 1/1", s.RestoreSuccess, s.RestoreFailure)
	}
	if s.CriticalEventsRetained != 4 {
		t.Errorf("CriticalEventsRetained = %d, want 4", s.CriticalEventsRetained)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("node-7")
	s := c.Snapshot()

	if s.StoreName != "node-7" {
		t.Errorf("StoreName = %q, want %q", s.StoreName, "node-7")
	}
}

func TestCollector_AbsorbSamplerStats(t *testing.T) {
	c := NewCollector("store-a")
	c.AbsorbSamplerStats(100, 60, 40, 5, 2)

	s := c.Snapshot()
	if s.SamplerDecisions != 100 {
		t.Errorf("SamplerDecisions = %d, want 100", s.SamplerDecisions)
	}
	if s.SamplerAdmitted != 60 {
		t.Errorf("SamplerAdmitted = %d, want 60", s.SamplerAdmitted)
	}
	if s.SamplerDropped != 40 {
		t.Errorf("SamplerDropped = %d, want 40", s.SamplerDropped)
	}
	if s.SamplerCriticalBypasses != 5 {
		t.Errorf("SamplerCriticalBypasses = %d, want 5", s.SamplerCriticalBypasses)
	}
	if s.SamplerFingerprintFailures != 2 {
		t.Errorf("SamplerFingerprintFailures = %d, want 2", s.SamplerFingerprintFailures)
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("store-a")
	c.IncEventsReceived()

	s1 := c.Snapshot()

	c.IncEventsReceived()
	c.IncEventsReceived()

	if s1.EventsReceived != 1 {
		t.Errorf("s1.EventsReceived = %d, want 1 (snapshot should be frozen)", s1.EventsReceived)
	}

	s2 := c.Snapshot()
	if s2.EventsReceived != 3 {
		t.Errorf("s2.EventsReceived = %d, want 3", s2.EventsReceived)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	c.IncEventsReceived()
	c.IncSanitizationFailure()
	c.IncEvicted()
	c.IncCapacityOverflow()
	c.IncAdapterMisuse()
	c.IncSnapshotSuccess()
	c.IncSnapshotFailure()
	c.IncRestoreSuccess()
	c.IncRestoreFailure()
	c.SetCriticalRetained(10)
	c.AbsorbSamplerStats(1, 1, 0, 0, 0)

	s := c.Snapshot()
	if s.EventsReceived != 0 {
		t.Errorf("nil collector snapshot EventsReceived = %d, want 0", s.EventsReceived)
	}
	if s.StoreName != "" {
		t.Errorf("nil collector snapshot StoreName should be empty, got %q", s.StoreName)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("store-a")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncEventsReceived()
				c.IncEvicted()
				c.IncSanitizationFailure()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.EventsReceived != want {
		t.Errorf("EventsReceived = %d, want %d", s.EventsReceived, want)
	}
	if s.EventsEvicted != want {
		t.Errorf("EventsEvicted = %d, want %d", s.EventsEvicted, want)
	}
	if s.EventsSanitizationFailures != want {
		t.Errorf("EventsSanitizationFailures = %d, want %d", s.EventsSanitizationFailures, want)
	}
}

func TestCollector_ZeroValueSnapshot(t *testing.T) {
	c := NewCollector("store-a")
	s := c.Snapshot()

	if s.EventsReceived != 0 || s.EventsEvicted != 0 || s.EventsSanitizationFailures != 0 {
		t.Error("fresh collector should have zero store counters")
	}
	if s.SamplerDecisions != 0 || s.SamplerAdmitted != 0 || s.SamplerDropped != 0 {
		t.Error("fresh collector should have zero sampler counters")
	}
	if s.SnapshotSuccess != 0 || s.SnapshotFailure != 0 || s.RestoreSuccess != 0 || s.RestoreFailure != 0 {
		t.Error("fresh collector should have zero snapshotter counters")
	}
}
