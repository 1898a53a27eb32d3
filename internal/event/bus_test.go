package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	ch1, unsub1 := bus.Subscribe()
	ch2, unsub2 := bus.Subscribe()
	defer unsub1()
	defer unsub2()

	bus.Publish(New(TypeTrashChanged, "payload"))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			assert.Equal(t, TypeTrashChanged, e.Type)
			assert.NotEmpty(t, e.ID)
			assert.False(t, e.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()

	ch, unsub := bus.Subscribe()
	unsub()

	_, open := <-ch
	require.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(New(TypeNotification, Notification{Message: "m", Severity: "info"}))

	// Unsubscribing twice is safe.
	unsub()
}

func TestBusDropsEventsForFullSubscriber(t *testing.T) {
	bus := NewBus()

	ch, unsub := bus.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(New(TypeTrashChanged, i))
	}

	// The buffer holds the first subscriberBuffer events; the rest were
	// dropped rather than blocking the publisher.
	assert.Len(t, ch, subscriberBuffer)
}
