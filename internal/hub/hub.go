// Package hub implements the broadcast hub and bounded replay buffer
// that fan a recorder's output out to zero or more live viewers.
package hub

import (
	"errors"
	"sync"

	"github.com/artpar/termcast/internal/logging"
)

// ErrViewerDisconnected names the state of a viewer that has been
// evicted from the hub. No function in this package returns it: the hub
// signals eviction by closing the viewer's outbox.
var ErrViewerDisconnected = errors.New("hub: viewer disconnected")

const (
	defaultQueueCapacity = 4096
	viewerOutboxCapacity = 256

	// KindMarker matches cast.KindMetadata; duplicated locally so this
	// package doesn't need to import cast just for one constant.
	KindMarker = "m"
)

// Viewer is a live consumer of broadcast events, typically backed by a
// single WebSocket connection.
type Viewer struct {
	ID     string
	outbox chan Entry
	closed bool
	mu     sync.Mutex
}

func newViewer(id string) *Viewer {
	return &Viewer{ID: id, outbox: make(chan Entry, viewerOutboxCapacity)}
}

// Outbox returns the channel a caller should drain to deliver messages
// to this viewer (e.g. by writing each Entry to a WebSocket).
func (v *Viewer) Outbox() <-chan Entry {
	return v.outbox
}

func (v *Viewer) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	close(v.outbox)
}

// attachMsg and detachMsg flow through the hub's single internal
// goroutine so that a publish that arrives concurrently with an attach
// is strictly ordered: attach's snapshot either includes it or doesn't,
// and never loses or duplicates it relative to what is broadcast after.
type attachMsg struct {
	viewer *Viewer
	result chan attachResult
}

type attachResult struct {
	entries []Entry
	info    Info
}

type detachMsg struct {
	viewer *Viewer
}

// Hub owns the replay buffer and the viewer registry, and serializes all
// publish/attach/detach operations through one goroutine.
type Hub struct {
	buffer *ReplayBuffer
	attach chan attachMsg
	detach chan detachMsg
	done   chan struct{}
	wake   chan struct{}
	log    *logging.Logger

	qmu     sync.Mutex
	pending []Entry
	dropped bool // an oldest entry was discarded since the last marker was emitted

	mu      sync.Mutex
	viewers map[string]*Viewer
}

// New creates a hub with the given replay buffer capacity and starts its
// dispatch goroutine.
func New(bufferCapacity int) *Hub {
	h := &Hub{
		buffer:  NewReplayBuffer(bufferCapacity),
		attach:  make(chan attachMsg),
		detach:  make(chan detachMsg),
		done:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
		log:     logging.WithComponent("hub"),
		viewers: make(map[string]*Viewer),
	}
	go h.run()
	return h
}

// Publish enqueues an output/stderr entry for broadcast. t is the
// session-elapsed timestamp the recorder stamped the event with (the
// same value written to the cast file), so replayed viewers see
// timestamps consistent with the recording. Publish never blocks: a
// bounded in-memory queue stands in for the original's unbounded one
// (spec.md §9); once it's full the oldest undelivered o/e entry is
// dropped to make room for the new one, and a single "broadcast_dropped"
// marker is queued so viewers can observe the gap instead of silently
// missing bytes.
func (h *Hub) Publish(t float64, kind, payload string) {
	h.qmu.Lock()
	if len(h.pending) >= defaultQueueCapacity {
		h.pending = h.pending[1:]
		h.dropped = true
	}
	h.pending = append(h.pending, Entry{Time: t, Kind: kind, Payload: payload})
	h.qmu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Attach registers a viewer and returns the replay snapshot it should be
// sent as an initial terminal_sync message. The snapshot is taken by the
// hub's own goroutine in the same step that registers the viewer for
// live broadcasts, so the two are atomic: an event the hub has already
// drained when it processes Attach's message lands in the snapshot, an
// event still queued at that moment is delivered as a live broadcast
// instead, never both, and nothing published after the viewer is
// registered is skipped.
func (h *Hub) Attach(id string) (*Viewer, []Entry, Info) {
	v := newViewer(id)
	result := make(chan attachResult)
	h.attach <- attachMsg{viewer: v, result: result}
	res := <-result
	return v, res.entries, res.info
}

// Detach evicts a viewer, closing its outbox.
func (h *Hub) Detach(v *Viewer) {
	h.detach <- detachMsg{viewer: v}
}

// Close stops the dispatch goroutine and evicts all viewers.
func (h *Hub) Close() {
	close(h.done)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for _, v := range h.viewers {
				v.close()
			}
			h.viewers = nil
			h.mu.Unlock()
			return

		case <-h.wake:
			for _, e := range h.drainQueue() {
				// The replay buffer is restricted to o/e entries
				// (spec.md §3); a synthetic drop marker is live-only.
				if e.Kind != KindMarker {
					h.buffer.Push(e)
				}
				h.broadcast(e)
			}

		case msg := <-h.attach:
			entries, info := h.buffer.Snapshot()
			h.mu.Lock()
			h.viewers[msg.viewer.ID] = msg.viewer
			h.mu.Unlock()
			msg.result <- attachResult{entries: entries, info: info}

		case msg := <-h.detach:
			h.mu.Lock()
			if _, ok := h.viewers[msg.viewer.ID]; ok {
				delete(h.viewers, msg.viewer.ID)
				msg.viewer.close()
			}
			h.mu.Unlock()
		}
	}
}

// drainQueue returns every entry enqueued since the last drain, in
// order, with a synthetic "m broadcast_dropped" entry spliced in at the
// point where the oldest-drop policy discarded something.
func (h *Hub) drainQueue() []Entry {
	h.qmu.Lock()
	batch := h.pending
	h.pending = nil
	wasDropped := h.dropped
	h.dropped = false
	h.qmu.Unlock()

	if !wasDropped {
		return batch
	}
	h.log.Warn("replay queue full, dropped oldest buffered event")
	out := make([]Entry, 0, len(batch)+1)
	out = append(out, Entry{Time: batch[0].Time, Kind: KindMarker, Payload: "broadcast_dropped"})
	return append(out, batch...)
}

func (h *Hub) broadcast(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, v := range h.viewers {
		select {
		case v.outbox <- e:
		default:
			// Outbox full: evict rather than block the hub or drop
			// silently for everyone else.
			delete(h.viewers, id)
			v.close()
		}
	}
}
