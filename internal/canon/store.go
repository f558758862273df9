// Package canon turns beats and measures into content-addressed identities.
//
// A canonical key is a pure function of musical content. Identities are minted
// by a Store the first time a key is seen and returned unchanged for every
// later request with the same key, whichever track or song it comes from.
package canon

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

// ID identifies a canonical beat or measure.
type ID string

// Kind separates the beat and measure key spaces.
type Kind string

// Entity kinds.
const (
	KindBeat    Kind = "beat"
	KindMeasure Kind = "measure"
)

// Store is a shared key -> identity table.
//
// GetOrCreate must be linearizable per (kind, key): concurrent callers with the
// same key all receive the same identity and at most one identity survives.
// Losing a creation race is not an error.
type Store interface {
	GetOrCreate(ctx context.Context, kind Kind, key string) (ID, error)
}

// NewID mints a fresh identity.
func NewID() ID {
	return ID(uuid.NewString())
}

const shardCount = 32

// MemoryStore is an in-process Store. Keys are spread over independently
// locked shards so unrelated keys never contend on one lock.
type MemoryStore struct {
	shards [shardCount]memShard
}

type memShard struct {
	mu  sync.Mutex
	ids map[string]ID
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{}
	for i := range m.shards {
		m.shards[i].ids = make(map[string]ID)
	}
	return m
}

// GetOrCreate implements Store.
func (m *MemoryStore) GetOrCreate(ctx context.Context, kind Kind, key string) (ID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	k := string(kind) + "\x00" + key
	sh := m.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if id, ok := sh.ids[k]; ok {
		return id, nil
	}
	id := NewID()
	sh.ids[k] = id
	return id, nil
}

// Len returns the number of identities held.
func (m *MemoryStore) Len() int {
	n := 0
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		n += len(sh.ids)
		sh.mu.Unlock()
	}
	return n
}

func (m *MemoryStore) shard(key string) *memShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%shardCount]
}
