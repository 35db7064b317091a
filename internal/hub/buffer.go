package hub

import (
	"sync"
	"time"
)

// Entry is one buffered output/stderr event available to a late-joining
// viewer. Time is the same session-elapsed-seconds value the recorder
// stamps into the cast file, not a hub-local wall-clock reading, so a
// viewer's replayed timestamps line up with the recording itself.
type Entry struct {
	Time    float64
	Kind    string // "o" or "e"
	Payload string
}

// Info summarizes a snapshot for the sync message sent to a newly
// attached viewer.
type Info struct {
	TotalEvents   int
	ShowingRecent int
	SyncTime      time.Time
}

// ReplayBuffer is a fixed-capacity FIFO of recent output entries. Unlike
// the byte-oriented ring buffer it is adapted from, Snapshot never
// destroys buffered state — multiple viewers can attach and each gets
// the same recent history.
type ReplayBuffer struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	head     int // index of oldest entry
	count    int
	total    int // total entries ever pushed, for Info.TotalEvents
}

// NewReplayBuffer creates a buffer holding at most capacity entries.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &ReplayBuffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Push appends an entry, evicting the oldest one if the buffer is full.
func (b *ReplayBuffer) Push(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total++
	idx := (b.head + b.count) % b.capacity
	b.entries[idx] = e
	if b.count < b.capacity {
		b.count++
	} else {
		b.head = (b.head + 1) % b.capacity
	}
}

// Snapshot returns a copy of the most recent min(capacity, 100) entries,
// in chronological order, plus summary info. The buffer is left intact.
func (b *ReplayBuffer) Snapshot() ([]Entry, Info) {
	b.mu.Lock()
	defer b.mu.Unlock()

	showing := b.count
	const maxSync = 100
	if showing > maxSync {
		showing = maxSync
	}

	out := make([]Entry, showing)
	start := b.count - showing
	for i := 0; i < showing; i++ {
		idx := (b.head + start + i) % b.capacity
		out[i] = b.entries[idx]
	}

	return out, Info{
		TotalEvents:   b.total,
		ShowingRecent: showing,
		SyncTime:      time.Now(),
	}
}
