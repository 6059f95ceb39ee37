// Package blockclock supplies the logical clock value ("block height") that
// every ledger operation runs at.
package blockclock

import (
	"sync"
	"time"
)

// BlocksPerDay is the number of blocks in one day of schedule arithmetic.
const BlocksPerDay = 144

// BlockInterval is the wall-clock length of one block.
const BlockInterval = 24 * time.Hour / BlocksPerDay

type Clock interface {
	Now() uint64
}

// Wall derives the block height from the time elapsed since genesis.
type Wall struct {
	genesis time.Time
	now     func() time.Time
}

func NewWall(genesis time.Time) *Wall {
	return &Wall{genesis: genesis, now: time.Now}
}

func (w *Wall) Now() uint64 {
	d := w.now().Sub(w.genesis)
	if d < 0 {
		return 0
	}
	return uint64(d / BlockInterval)
}

// Manual is a clock tests move by hand.
type Manual struct {
	mu     sync.Mutex
	height uint64
}

func NewManual(height uint64) *Manual {
	return &Manual{height: height}
}

func (m *Manual) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.height
}

func (m *Manual) Set(height uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.height = height
}

func (m *Manual) Advance(blocks uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.height += blocks
}
