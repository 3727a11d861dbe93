// Package dedupe tracks recently accepted match IDs so a retried submission
// is not recorded twice.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 100_000

// Deduper records seen match IDs to ensure at-most-once recording.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an ID so the match can be resubmitted. Used when an
	// accepted match could not be queued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// node is one entry in the insertion-ordered list.
type node struct {
	id         string
	prev, next *node
}

func (n *node) reset() {
	n.id = ""
	n.prev = nil
	n.next = nil
}

// inMemoryDeduper keeps IDs in insertion order. In bounded mode the oldest ID
// is evicted first; with maxSize <= 0 nothing is ever evicted.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]*node
	oldest   *node
	newest   *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*node),
		nodePool: sync.Pool{
			New: func() any { return &node{} },
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.id = id
	n.prev = d.newest
	if d.newest != nil {
		d.newest.next = n
	} else {
		d.oldest = n
	}
	d.newest = n
	d.seen[id] = n
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, exists := d.seen[id]; exists {
		d.remove(n)
	}
}

// evictOldest drops the first-recorded entry. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.oldest != nil {
		d.remove(d.oldest)
	}
}

// remove unlinks n and returns it to the pool. Must be called with d.mu held.
func (d *inMemoryDeduper) remove(n *node) {
	delete(d.seen, n.id)
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.oldest = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.newest = n.prev
	}
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
