package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewBus()
	var got []any

	unsubscribe := bus.Subscribe("attendance-update", func(p any) { got = append(got, p) })
	defer unsubscribe()

	bus.Publish("attendance-update", "check-in")
	bus.Publish("other", "ignored")

	assert.Equal(t, []any{"check-in"}, got)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	calls := 0

	unsubscribe := bus.Subscribe("attendance-update", func(any) { calls++ })
	bus.Publish("attendance-update", nil)
	unsubscribe()
	unsubscribe()
	bus.Publish("attendance-update", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.subscriberCount("attendance-update"))
}

func TestBus_HandlerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	calls := 0

	var unsubscribe func()
	unsubscribe = bus.Subscribe("attendance-update", func(any) {
		calls++
		unsubscribe()
	})

	bus.Publish("attendance-update", nil)
	bus.Publish("attendance-update", nil)

	assert.Equal(t, 1, calls)
}
