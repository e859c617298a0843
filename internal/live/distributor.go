// Package live fans leaderboard and status snapshots out to subscribers.
package live

import (
	"sync"

	"live-quiz-service/internal/domain"
)

// Hub distributes leaderboard snapshots per quiz. Delivery is at-least-once
// with coalescing: a slow subscriber may miss intermediate snapshots but
// always converges on the latest one, and never sees an older snapshot after
// a newer one.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.Leaderboard]struct{}
	revs map[string]uint64
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan domain.Leaderboard]struct{}),
		revs: make(map[string]uint64),
	}
}

// Subscribe registers interest in one quiz and queues the provided snapshot
// as the first delivery. The returned cancel must be called to release the
// subscription; calling it more than once, or during an in-flight delivery,
// is safe.
func (h *Hub) Subscribe(quizID string, initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)
	// Queue the snapshot before registering so a publish burst can never
	// fill the buffer ahead of it.
	ch <- initial

	h.mu.Lock()
	set, ok := h.subs[quizID]
	if !ok {
		set = make(map[chan domain.Leaderboard]struct{})
		h.subs[quizID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		set, ok := h.subs[quizID]
		if !ok {
			return
		}
		if _, registered := set[ch]; registered {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(h.subs, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every current subscriber of the quiz. A
// full or slow subscriber has its oldest queued snapshot dropped rather than
// blocking the publisher or its peers. Snapshots carrying a revision older
// than one already published for the quiz are discarded so a delayed
// publisher can never push subscribers backwards.
func (h *Hub) Publish(quizID string, lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if lb.Revision < h.revs[quizID] {
		return
	}
	h.revs[quizID] = lb.Revision
	for ch := range h.subs[quizID] {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// Subscribers reports the current subscriber count for a quiz.
func (h *Hub) Subscribers(quizID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[quizID])
}
