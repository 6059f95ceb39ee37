package store

import (
	"context"
	"sync"
)

// Journal makes committed batches durable. Append is called with the store
// lock held, before the batch becomes visible; an error aborts the batch.
type Journal interface {
	Append(ctx context.Context, b Batch) error
	// Load replays the latest value of every live key and returns the
	// sequence number of the last appended batch.
	Load(ctx context.Context, fn func(Change) error) (uint64, error)
}

// Discard keeps nothing. State lives only as long as the process.
type Discard struct{}

func (Discard) Append(context.Context, Batch) error { return nil }

func (Discard) Load(context.Context, func(Change) error) (uint64, error) { return 0, nil }

// MemoryJournal keeps every batch in memory. Setting Err makes the next
// appends fail.
type MemoryJournal struct {
	mu      sync.Mutex
	Batches []Batch
	Err     error
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(_ context.Context, b Batch) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Err != nil {
		return j.Err
	}
	j.Batches = append(j.Batches, b)
	return nil
}

func (j *MemoryJournal) Load(_ context.Context, fn func(Change) error) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	type entryKey struct {
		ns  string
		key string
	}
	latest := make(map[entryKey]Change)
	var order []entryKey
	var seq uint64
	for _, b := range j.Batches {
		seq = b.Seq
		for _, c := range b.Changes {
			k := entryKey{ns: c.Namespace, key: string(c.Key)}
			if _, ok := latest[k]; !ok {
				order = append(order, k)
			}
			latest[k] = c
		}
	}

	for _, k := range order {
		c := latest[k]
		if c.Deleted {
			continue
		}
		if err := fn(c); err != nil {
			return 0, err
		}
	}
	return seq, nil
}
