package orch

import (
	"context"
	"sync"
)

// feed fans values out to subscribers. Every subscriber owns a small buffer;
// when it is full the oldest undelivered value is dropped, so a slow reader
// always ends up with the latest one.
type feed[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	buf    int

	replay bool
	cur    T
	has    bool
}

func newFeed[T any](buf int, replay bool) *feed[T] {
	return &feed[T]{subs: make(map[uint64]chan T), buf: buf, replay: replay}
}

func (f *feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replay {
		f.cur, f.has = v, true
	}
	for _, ch := range f.subs {
		offerLatest(ch, v)
	}
}

// Subscribe returns a channel that receives published values until ctx is
// done, at which point the channel is closed.
func (f *feed[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, f.buf)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	if f.has {
		ch <- f.cur
	}
	f.mu.Unlock()

	context.AfterFunc(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
		close(ch)
	})
	return ch
}

func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
