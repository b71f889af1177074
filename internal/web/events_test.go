package web

import "testing"

func TestEventBroker_NotifyReachesSubscribers(t *testing.T) {
	b := newEventBroker()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify()

	select {
	case <-ch:
	default:
		t.Error("subscriber did not receive signal")
	}
}

func TestEventBroker_NotifyCoalesces(t *testing.T) {
	b := newEventBroker()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Second notify must not block on the full buffer.
	b.Notify()
	b.Notify()

	<-ch
	select {
	case <-ch:
		t.Error("coalesced notify should leave only one pending signal")
	default:
	}
}

func TestEventBroker_UnsubscribeStopsDelivery(t *testing.T) {
	b := newEventBroker()
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	b.Notify()

	select {
	case <-ch:
		t.Error("unsubscribed channel received signal")
	default:
	}
}
