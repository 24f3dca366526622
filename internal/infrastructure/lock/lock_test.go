package lock

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := New(8)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("loan-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("expected 100 increments, got %d", counter)
	}
}

func TestKeyedMutexStableShard(t *testing.T) {
	k := New(0)
	if len(k.shards) != DefaultShards {
		t.Fatalf("expected %d shards, got %d", DefaultShards, len(k.shards))
	}
	if k.shard("loan-42") != k.shard("loan-42") {
		t.Fatal("same key must map to the same shard")
	}
}

func TestKeyedMutexUnlockReleases(t *testing.T) {
	k := New(1)
	unlock := k.Lock("a")
	unlock()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	<-done
}
