package service

import (
	"fmt"
	"sync"

	"github.com/acervolabs/acervo/domain/embedding"
)

// entityLocks serializes indexing runs per entity. Different entities index
// concurrently; two runs for the same entity queue behind one mutex so their
// generations cannot interleave.
type entityLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{entries: make(map[string]*lockEntry)}
}

func entityKey(t embedding.EntityType, id int64) string {
	return fmt.Sprintf("%s:%d", t, id)
}

// Lock acquires the lock for one entity and returns its release function.
// Entries are reference counted so the map does not grow with every entity
// ever indexed.
func (l *entityLocks) Lock(t embedding.EntityType, id int64) func() {
	key := entityKey(t, id)

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
