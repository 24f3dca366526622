package lock

import (
	"hash/fnv"
	"sync"
)

// DefaultShards is the shard count used when New is given a non-positive one.
const DefaultShards = 64

// KeyedMutex serializes work per key. Keys hash onto a fixed set of
// mutexes, so unrelated keys may occasionally share a shard but one key
// always maps to the same mutex.
type KeyedMutex struct {
	shards []sync.Mutex
}

// New creates a KeyedMutex with the given number of shards.
func New(shards int) *KeyedMutex {
	if shards <= 0 {
		shards = DefaultShards
	}
	return &KeyedMutex{shards: make([]sync.Mutex, shards)}
}

// Lock blocks until key is free and returns the unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	mu := &k.shards[k.shard(key)]
	mu.Lock()
	return mu.Unlock
}

func (k *KeyedMutex) shard(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(k.shards)))
}
