package broker

import (
	"fmt"
	"sync"
)

type subscriber[T any] struct {
	name    string
	handler func(T)
}

// Broker implements a simple fan-out message broker. Messages are delivered synchronously, on the
// publishing goroutine, to each subscriber in subscription order; messages published by a single
// goroutine are thus observed in order.
type Broker[T any] struct {
	mu          sync.Mutex
	subscribers []subscriber[T]
	closed      bool
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{}
}

// Subscribe registers handler under name, replacing any previous subscriber with the same name.
// The returned function removes the subscription.
func (b *Broker[T]) Subscribe(name string, handler func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic(fmt.Sprintf("bug: subscribing %#v to a closed broker", name))
	}

	b.removeLocked(name)
	b.subscribers = append(b.subscribers, subscriber[T]{name: name, handler: handler})

	return func() { b.Unsubscribe(name) }
}

func (b *Broker[T]) removeLocked(name string) {
	for i, s := range b.subscribers {
		if s.name == name {
			b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Unsubscribe removes the named subscriber, if present.
func (b *Broker[T]) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(name)
}

// Publish delivers t to all subscribers registered when it was called. Handlers may call any
// Broker method, including Publish.
func (b *Broker[T]) Publish(t T) {
	b.mu.Lock()
	subscribers := append([]subscriber[T]{}, b.subscribers...)
	b.mu.Unlock()

	for _, s := range subscribers {
		s.handler(t)
	}
}

// Len returns the number of subscribers.
func (b *Broker[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close removes all subscribers. Messages published afterwards are dropped.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subscribers = nil
}
