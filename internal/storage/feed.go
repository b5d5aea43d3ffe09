package storage

import (
	"context"
	"sync"
)

type subscriber[T any] struct {
	ch        chan T
	transform func(T) T
}

// Feed fans snapshots out to subscribers with latest-wins delivery. Each
// subscriber has a one-slot buffer: publishing replaces an unread snapshot
// instead of blocking, so no backend write ever waits on a slow reader.
type Feed[T any] struct {
	mu      sync.Mutex
	subs    map[int]*subscriber[T]
	nextID  int
	last    T
	hasLast bool
	closed  bool
	done    chan struct{}
}

func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[int]*subscriber[T]), done: make(chan struct{})}
}

// Subscribe registers a reader. If a snapshot has already been published it
// is delivered immediately. The channel closes when ctx ends or the feed closes.
func (f *Feed[T]) Subscribe(ctx context.Context) <-chan T {
	return f.SubscribeFunc(ctx, nil)
}

// SubscribeFunc is Subscribe with a per-reader transform applied to every
// snapshot before delivery, used for bounded views such as activity limits.
func (f *Feed[T]) SubscribeFunc(ctx context.Context, transform func(T) T) <-chan T {
	sub := &subscriber[T]{ch: make(chan T, 1), transform: transform}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(sub.ch)
		return sub.ch
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	if f.hasLast {
		sub.offer(f.last)
	}
	f.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if s, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(s.ch)
		}
	}()

	return sub.ch
}

// Publish records v as the latest snapshot and offers it to every subscriber.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.last = v
	f.hasLast = true
	for _, s := range f.subs {
		s.offer(v)
	}
}

// Latest returns the most recent snapshot, if any.
func (f *Feed[T]) Latest() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.hasLast
}

// Len reports the number of live subscribers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close closes every subscriber channel. Later publishes are dropped.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.done)
	for id, s := range f.subs {
		delete(f.subs, id)
		close(s.ch)
	}
}

// offer must be called with the feed lock held; the feed is the only sender.
func (s *subscriber[T]) offer(v T) {
	if s.transform != nil {
		v = s.transform(v)
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}
