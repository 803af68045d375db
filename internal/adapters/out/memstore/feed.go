package memstore

import (
	"context"
	"slices"
	"sync"

	"pharmaqueue/internal/core/ports"
)

const subscriptionBuffer = 256

type subscription struct {
	store  *Store
	tables []string
	ch     chan ports.FeedMessage
	once   sync.Once
	silent bool
}

func (sub *subscription) Messages() <-chan ports.FeedMessage {
	return sub.ch
}

func (sub *subscription) Close() {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()
	sub.closeLocked()
}

func (sub *subscription) closeLocked() {
	sub.once.Do(func() {
		delete(sub.store.subscribers, sub)
		close(sub.ch)
	})
}

// send never blocks the store; a subscriber that falls behind is closed.
func (sub *subscription) sendLocked(msg ports.FeedMessage) {
	select {
	case sub.ch <- msg:
	default:
		sub.closeLocked()
	}
}

// Subscribe implements ports.ChangeFeed. The subscription confirms itself
// with SUBSCRIBED before any change.
func (s *Store) Subscribe(_ context.Context, tables []string) (ports.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked(OpSubscribe); err != nil {
		return nil, err
	}

	sub := &subscription{store: s, tables: slices.Clone(tables), ch: make(chan ports.FeedMessage, subscriptionBuffer)}
	s.subscribers[sub] = struct{}{}
	sub.sendLocked(ports.FeedMessage{Status: ports.ChannelSubscribed})
	return sub, nil
}

// Disconnect signals status to every live subscriber. CLOSED also ends the
// subscriptions; CHANNEL_ERROR and TIMED_OUT leave them open but silent
// until a new subscription replaces them.
func (s *Store) Disconnect(status ports.ChannelStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subscribers {
		sub.sendLocked(ports.FeedMessage{Status: status})
		sub.silent = true
		if status == ports.ChannelClosed {
			sub.closeLocked()
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Store) publishLocked(ev ports.ChangeEvent) {
	for sub := range s.subscribers {
		if !sub.silent && slices.Contains(sub.tables, ev.Table) {
			change := ev
			sub.sendLocked(ports.FeedMessage{Change: &change})
		}
	}
}
