// ABOUTME: In-memory fan-out change feed for cache slice updates
// ABOUTME: Lets UI layers re-render when a slice is replaced without polling the store

package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 32
)

// Change signals that a slice was replaced at At.
type Change struct {
	Slice Slice
	At    time.Time
}

type subscriber struct {
	ch     chan Change
	slices map[Slice]struct{} // empty means every slice
	done   chan struct{}      // closed on unsubscribe or feed close
}

func (s *subscriber) wants(slice Slice) bool {
	if len(s.slices) == 0 {
		return true
	}
	_, ok := s.slices[slice]
	return ok
}

// changeFeed provides pub/sub for slice changes. Publishing never blocks:
// changes are dropped for subscribers whose channels are full.
type changeFeed struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber // subID -> subscriber
	closed      bool
	logger      *slog.Logger
}

func newChangeFeed(logger *slog.Logger) *changeFeed {
	return &changeFeed{
		subscribers: make(map[string]*subscriber),
		logger:      logger,
	}
}

// subscribe registers a subscriber for the given slices (all slices when none
// are given). The subscription is cleaned up when ctx is cancelled.
func (f *changeFeed) subscribe(ctx context.Context, slices ...Slice) (<-chan Change, string) {
	subID := uuid.New().String()
	sub := &subscriber{
		ch:     make(chan Change, subscriberBufferSize),
		slices: make(map[Slice]struct{}, len(slices)),
		done:   make(chan struct{}),
	}
	for _, s := range slices {
		sub.slices[s] = struct{}{}
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(sub.ch)
		return sub.ch, subID
	}
	f.subscribers[subID] = sub
	f.mu.Unlock()

	f.logger.Debug("subscriber added", "sub_id", subID, "slices", slices)

	go func() {
		select {
		case <-ctx.Done():
			f.unsubscribe(subID)
		case <-sub.done:
		}
	}()

	return sub.ch, subID
}

func (f *changeFeed) publish(change Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for id, sub := range f.subscribers {
		if !sub.wants(change.Slice) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			f.logger.Debug("dropped change for slow subscriber",
				"sub_id", id,
				"slice", change.Slice)
		}
	}
}

func (f *changeFeed) unsubscribe(subID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub, ok := f.subscribers[subID]
	if !ok {
		return
	}
	delete(f.subscribers, subID)
	close(sub.ch)
	close(sub.done)

	f.logger.Debug("subscriber removed", "sub_id", subID)
}

func (f *changeFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for subID, sub := range f.subscribers {
		close(sub.ch)
		close(sub.done)
		delete(f.subscribers, subID)
	}
	f.closed = true
}

func (f *changeFeed) len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}
