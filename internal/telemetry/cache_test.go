package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func testRecord(deviceID string, lat float64) Record {
	return Record{
		DeviceID:   deviceID,
		Latitude:   &lat,
		ReceivedAt: time.Now().UTC(),
	}
}

func TestCache_GetUnknownDevice(t *testing.T) {
	cache := newLastKnownCache(10, time.Minute)

	_, found := cache.Get("never-seen")

	if found {
		t.Error("Expected no record for a device that was never ingested")
	}
}

func TestCache_LastWriteWins(t *testing.T) {
	cache := newLastKnownCache(10, time.Minute)

	cache.Put("dev1", testRecord("dev1", 45.5))
	cache.Put("dev1", testRecord("dev1", 46.0))

	record, found := cache.Get("dev1")
	if !found {
		t.Fatal("Expected a record for dev1")
	}
	if *record.Latitude != 46.0 {
		t.Errorf("Expected latitude 46.0 from the second report, got %v", *record.Latitude)
	}
	if cache.Len() != 1 {
		t.Errorf("Expected a single entry per device, got %d", cache.Len())
	}
}

func TestCache_ReplaceDoesNotMergeFields(t *testing.T) {
	cache := newLastKnownCache(10, time.Minute)

	speed := 60.0
	first := testRecord("dev1", 45.5)
	first.Speed = &speed
	cache.Put("dev1", first)

	// Second report has no speed; the entry must not keep the old one
	cache.Put("dev1", testRecord("dev1", 46.0))

	record, found := cache.Get("dev1")
	if !found {
		t.Fatal("Expected a record for dev1")
	}
	if record.Speed != nil {
		t.Errorf("Expected speed to be unknown after full replace, got %v", *record.Speed)
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := newLastKnownCache(3, time.Minute)

	cache.Put("dev1", testRecord("dev1", 1))
	cache.Put("dev2", testRecord("dev2", 2))
	cache.Put("dev3", testRecord("dev3", 3))

	// Touch dev1 so dev2 becomes the oldest
	if _, found := cache.Get("dev1"); !found {
		t.Fatal("Expected dev1 to be cached")
	}

	cache.Put("dev4", testRecord("dev4", 4))

	if _, found := cache.Get("dev2"); found {
		t.Error("Expected dev2 to be evicted as least recently used")
	}
	if _, found := cache.Get("dev1"); !found {
		t.Error("Expected dev1 to survive eviction after recent access")
	}
	if cache.Len() != 3 {
		t.Errorf("Expected cache to stay at capacity 3, got %d", cache.Len())
	}
}

func TestCache_ExpiredEntryNotReturned(t *testing.T) {
	cache := newLastKnownCache(10, 10*time.Millisecond)

	cache.Put("dev1", testRecord("dev1", 45.5))
	time.Sleep(25 * time.Millisecond)

	if _, found := cache.Get("dev1"); found {
		t.Error("Expected expired entry to be treated as not found")
	}
}

func TestCache_ConcurrentReadsAndWrites(t *testing.T) {
	cache := newLastKnownCache(100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				deviceID := fmt.Sprintf("dev%d", j%20)
				cache.Put(deviceID, testRecord(deviceID, float64(worker)))
				if record, found := cache.Get(deviceID); found {
					// A reader must never observe a half-written record
					if record.DeviceID != deviceID {
						t.Errorf("Got record for %s when reading %s", record.DeviceID, deviceID)
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()
}
