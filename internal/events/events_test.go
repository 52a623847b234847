package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	t.Run("DeliversToSubscriber", func(t *testing.T) {
		bus := NewEventBus()

		var got *Event
		bus.Subscribe(EventBookingCreated, func(e *Event) error {
			got = e
			return nil
		})

		bus.Publish(&Event{Type: EventBookingCreated, Payload: []byte(`{"id":"b1"}`)})

		require.NotNil(t, got)
		assert.Equal(t, EventBookingCreated, got.Type)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("TypeIsolation", func(t *testing.T) {
		bus := NewEventBus()

		var sessionEvents, taskEvents int
		bus.Subscribe(EventSessionChanged, func(*Event) error { sessionEvents++; return nil })
		bus.Subscribe(EventTaskMoved, func(*Event) error { taskEvents++; return nil })

		bus.Publish(&Event{Type: EventSessionChanged})
		bus.Publish(&Event{Type: EventSessionChanged})

		assert.Equal(t, 2, sessionEvents)
		assert.Zero(t, taskEvents)
	})

	t.Run("MultipleSubscribersInOrder", func(t *testing.T) {
		bus := NewEventBus()

		var order []string
		bus.Subscribe(EventSignedOut, func(*Event) error { order = append(order, "first"); return nil })
		bus.Subscribe(EventSignedOut, func(*Event) error { order = append(order, "second"); return nil })

		bus.Publish(&Event{Type: EventSignedOut})

		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("HandlerErrorDoesNotStopOthers", func(t *testing.T) {
		bus := NewEventBus()

		var reached bool
		bus.Subscribe(EventTaskMoved, func(*Event) error { return errors.New("boom") })
		bus.Subscribe(EventTaskMoved, func(*Event) error { reached = true; return nil })

		bus.Publish(&Event{Type: EventTaskMoved})

		assert.True(t, reached)
	})

	t.Run("NoSubscribersIsNoop", func(t *testing.T) {
		bus := NewEventBus()
		bus.Publish(&Event{Type: EventBookingCreated})
	})

	t.Run("KeepsExplicitTimestamp", func(t *testing.T) {
		bus := NewEventBus()

		var got time.Time
		bus.Subscribe(EventBookingCreated, func(e *Event) error {
			got = e.CreatedAt
			return nil
		})

		stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		bus.Publish(&Event{Type: EventBookingCreated, CreatedAt: stamp})

		assert.Equal(t, stamp, got)
	})
}

func TestPublishJSON(t *testing.T) {
	t.Run("SerializesPayload", func(t *testing.T) {
		bus := NewEventBus()

		var got SessionEventPayload
		bus.Subscribe(EventSessionChanged, func(e *Event) error {
			return json.Unmarshal(e.Payload, &got)
		})

		err := bus.PublishJSON(EventSessionChanged, SessionEventPayload{
			UserID: "user-1",
			Email:  "pat@example.com",
			Role:   "admin",
		})
		require.NoError(t, err)

		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "admin", got.Role)
	})

	t.Run("NilBusIsSafe", func(t *testing.T) {
		var bus *EventBus
		assert.NoError(t, bus.PublishJSON(EventSignedOut, nil))
	})

	t.Run("UnserializablePayload", func(t *testing.T) {
		bus := NewEventBus()
		err := bus.PublishJSON(EventSessionChanged, make(chan int))
		assert.Error(t, err)
	})
}
