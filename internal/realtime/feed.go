package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"geauxclean/internal/domain"
	"geauxclean/internal/metrics"
	"geauxclean/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channelPrefix = "changes:"

// RedisFeed is a change feed over Redis pub/sub. One channel per table,
// JSON-encoded ChangeEvent per message. Events are delivered in channel
// order; no sequence numbers, so a replayed or late event is the
// subscriber's reducer's problem (they are written to be idempotent).
type RedisFeed struct {
	client *redis.Client
	retry  worker.RetryPolicy
	logger *zerolog.Logger
}

func NewRedisFeed(client *redis.Client, retry worker.RetryPolicy, logger *zerolog.Logger) *RedisFeed {
	if retry.MaxRetries == 0 {
		retry = worker.RetryPolicy{MaxRetries: 10, InitialDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second, BackoffFactor: 2}
	}
	return &RedisFeed{client: client, retry: retry, logger: logger}
}

// Subscribe starts a receive loop for the table's channel. On a broken
// subscription it resubscribes with exponential backoff rather than
// silently going quiet. The returned func closes the subscription.
func (f *RedisFeed) Subscribe(ctx context.Context, table string, handler func(event domain.ChangeEvent)) (func(), error) {
	if f.client == nil {
		return nil, fmt.Errorf("realtime: redis client is nil")
	}

	subCtx, cancel := context.WithCancel(ctx)
	var closed atomic.Bool
	ready := make(chan error, 1)

	go f.receiveLoop(subCtx, table, handler, ready)

	if err := <-ready; err != nil {
		cancel()
		return nil, err
	}

	unsubscribe := func() {
		if closed.CompareAndSwap(false, true) {
			cancel()
		}
	}
	return unsubscribe, nil
}

func (f *RedisFeed) receiveLoop(ctx context.Context, table string, handler func(domain.ChangeEvent), ready chan<- error) {
	channel := channelPrefix + table
	attempt := 0
	first := true

	for {
		if ctx.Err() != nil {
			return
		}

		pubsub := f.client.Subscribe(ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if first {
				first = false
				ready <- err
				return
			}
			attempt++
			if attempt > f.retry.MaxRetries {
				f.logger.Error().Err(err).Str("table", table).Msg("change feed resubscribe gave up")
				return
			}
			delay := f.retry.NextDelay(attempt)
			f.logger.Warn().Err(err).Str("table", table).Dur("delay", delay).Msg("change feed resubscribe")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		if first {
			first = false
			ready <- nil
		}
		attempt = 0

		ch := pubsub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					pubsub.Close()
					break recv
				}
				var event domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn().Err(err).Str("table", table).Msg("change feed: bad payload dropped")
					continue
				}
				if event.Table == "" {
					event.Table = table
				}
				metrics.IncFeedEvent(event.Table, event.Type)
				handler(event)
			}
		}
	}
}

// Publish sends a change event to the table's channel. Used by test
// fixtures and by server-side writers that share this transport.
func (f *RedisFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channelPrefix+event.Table, data).Err()
}

// BusFeed is an in-process change feed for the local backend and tests.
type BusFeed struct {
	mu       sync.RWMutex
	handlers map[string]map[int64]func(domain.ChangeEvent)
	nextID   int64
}

func NewBusFeed() *BusFeed {
	return &BusFeed{handlers: make(map[string]map[int64]func(domain.ChangeEvent))}
}

func (f *BusFeed) Subscribe(ctx context.Context, table string, handler func(event domain.ChangeEvent)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers[table] == nil {
		f.handlers[table] = make(map[int64]func(domain.ChangeEvent))
	}
	f.nextID++
	id := f.nextID
	f.handlers[table][id] = handler

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[table], id)
	}, nil
}

func (f *BusFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	f.mu.RLock()
	handlers := make([]func(domain.ChangeEvent), 0, len(f.handlers[event.Table]))
	for _, h := range f.handlers[event.Table] {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	metrics.IncFeedEvent(event.Table, event.Type)
	for _, h := range handlers {
		h(event)
	}
	return nil
}
