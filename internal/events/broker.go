package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Sink forwards events outside the process.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Recorder counts published events.
type Recorder interface {
	RecordEvent(topic string)
}

// Broker fans change notifications out to in-process subscribers and external sinks.
// Slow subscribers lose events rather than blocking publishers.
type Broker struct {
	buffer   int
	logger   *zap.Logger
	recorder Recorder
	sinks    []Sink

	mu          sync.RWMutex
	nextID      int
	subscribers map[int]chan Event
	closed      bool
}

// NewBroker constructs a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int, logger *zap.Logger, recorder Recorder, sinks ...Sink) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		buffer:      buffer,
		logger:      logger,
		recorder:    recorder,
		sinks:       sinks,
		subscribers: make(map[int]chan Event),
	}
}

// Subscribe registers a listener. The returned func unsubscribes and closes the channel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if existing, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(existing)
			}
			b.mu.Unlock()
		})
	}
}

// Subscribers reports the number of active listeners.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish delivers evt to every subscriber and sink. Sink failures are logged only.
func (b *Broker) Publish(ctx context.Context, evt Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	for id, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.logger.Debug("subscriber buffer full, dropping event", zap.Int("subscriber", id), zap.String("topic", string(evt.Type)))
		}
	}
	b.mu.RUnlock()

	for _, sink := range b.sinks {
		if err := sink.Publish(ctx, evt); err != nil {
			b.logger.Warn("forward event failed", zap.String("topic", string(evt.Type)), zap.Error(err))
		}
	}

	if b.recorder != nil {
		b.recorder.RecordEvent(string(evt.Type))
	}
}

// Close disconnects every subscriber and sink.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()

	for _, sink := range b.sinks {
		if err := sink.Close(); err != nil {
			b.logger.Warn("close event sink failed", zap.Error(err))
		}
	}
}
