package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRoutesByProjectAndTable(t *testing.T) {
	hub := NewHub()

	itemsSub := hub.NewSubscriber("p1")
	hub.Subscribe(itemsSub, "items")

	otherProject := hub.NewSubscriber("p2")
	hub.Subscribe(otherProject, "items")

	hub.Publish("p1", "items", "INSERT", map[string]any{"id": "r1"})

	select {
	case change := <-itemsSub.C():
		assert.Equal(t, "change", change.Type)
		assert.Equal(t, "INSERT", change.Event)
		assert.Equal(t, "items", change.Table)
	default:
		t.Fatal("expected a delivery for the matching subscriber")
	}

	select {
	case <-otherProject.C():
		t.Fatal("subscriber in another project must not receive the event")
	default:
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()

	sub := hub.NewSubscriber("p1")
	hub.Subscribe(sub, "items")
	hub.Unsubscribe(sub, "items")

	hub.Publish("p1", "items", "DELETE", nil)

	select {
	case <-sub.C():
		t.Fatal("unsubscribed client must not receive events")
	default:
	}
}

func TestHubRemoveDropsAllSubscriptions(t *testing.T) {
	hub := NewHub()

	sub := hub.NewSubscriber("p1")
	hub.Subscribe(sub, "items")
	hub.Subscribe(sub, "orders")
	hub.Remove(sub)

	hub.Publish("p1", "items", "UPDATE", nil)
	hub.Publish("p1", "orders", "UPDATE", nil)

	select {
	case <-sub.C():
		t.Fatal("removed client must not receive events")
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()

	sub := hub.NewSubscriber("p1")
	hub.Subscribe(sub, "items")

	// Publish never blocks, even well past the buffer size.
	for i := 0; i < subscriberBuffer*2; i++ {
		hub.Publish("p1", "items", "INSERT", i)
	}

	received := 0
	for {
		select {
		case <-sub.C():
			received++
			continue
		default:
		}
		break
	}
	require.Equal(t, subscriberBuffer, received)
}
