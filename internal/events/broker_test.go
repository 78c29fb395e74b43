package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-services/internal/domain"
)

func strPtr(s string) *string { return &s }

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func assertEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event %s", ev.Type)
		}
	default:
	}
}

func TestFilterMatchesPublishExample(t *testing.T) {
	event := Event{
		Type:       EventTicketUpdated,
		HotelID:    "H",
		TicketID:   "T1",
		StayID:     strPtr("S1"),
		Department: "reception",
		Version:    2,
	}

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"hotel only", Filter{HotelID: "H"}, true},
		{"same stay", Filter{HotelID: "H", StayID: strPtr("S1")}, true},
		{"other stay", Filter{HotelID: "H", StayID: strPtr("S2")}, false},
		{"listed department", Filter{HotelID: "H", Departments: []string{"reception"}}, true},
		{"other department", Filter{HotelID: "H", Departments: []string{"housekeeping"}}, false},
		{"empty departments", Filter{HotelID: "H", Departments: []string{}}, false},
		{"other hotel", Filter{HotelID: "H2"}, false},
		{"same ticket", Filter{HotelID: "H", TicketID: strPtr("T1")}, true},
		{"other ticket", Filter{HotelID: "H", TicketID: strPtr("T2")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(event))
		})
	}
}

func TestFilterStayRequiresEventStay(t *testing.T) {
	f := Filter{HotelID: "H", StayID: strPtr("S1")}
	assert.False(t, f.Matches(Event{HotelID: "H", Type: EventTicketCreated, TicketID: "T"}))
}

func TestFilterExcludesInternalEvents(t *testing.T) {
	f := Filter{HotelID: "H", StayID: strPtr("S1"), ExcludeInternal: true}
	note := Event{Type: EventTicketNoteCreated, HotelID: "H", StayID: strPtr("S1"), Internal: true}
	assert.False(t, f.Matches(note))

	f.ExcludeInternal = false
	assert.True(t, f.Matches(note))
}

func TestBrokerDeliversOnlyToMatchingSubscriptions(t *testing.T) {
	b := NewBroker(BrokerConfig{}, nil, nil)
	defer b.Close()

	hotelWide, _ := b.Subscribe(Filter{HotelID: "H"})
	stay1, _ := b.Subscribe(Filter{HotelID: "H", StayID: strPtr("S1")})
	stay2, _ := b.Subscribe(Filter{HotelID: "H", StayID: strPtr("S2")})
	reception, _ := b.Subscribe(Filter{HotelID: "H", Departments: []string{"Reception"}})
	housekeeping, _ := b.Subscribe(Filter{HotelID: "H", Departments: []string{"housekeeping"}})
	otherHotel, _ := b.Subscribe(Filter{HotelID: "H2"})

	err := b.Publish(context.Background(), Event{
		Type: EventTicketUpdated, HotelID: "H", TicketID: "T1",
		StayID: strPtr("S1"), Department: "reception", Version: 2,
	})
	require.NoError(t, err)

	for _, sub := range []*Subscription{hotelWide, stay1, reception} {
		ev := receive(t, sub)
		assert.Equal(t, "T1", ev.TicketID)
	}
	for _, sub := range []*Subscription{stay2, housekeeping, otherHotel} {
		assertEmpty(t, sub)
	}
}

func TestBrokerPreservesPublishOrderPerSubscription(t *testing.T) {
	b := NewBroker(BrokerConfig{BufferSize: 16}, nil, nil)
	defer b.Close()
	sub, unsubscribe := b.Subscribe(Filter{HotelID: "H"})
	defer unsubscribe()

	for v := int64(1); v <= 5; v++ {
		require.NoError(t, b.Publish(context.Background(), Event{
			Type: EventTicketUpdated, HotelID: "H", TicketID: "T1", Version: v,
		}))
	}
	for v := int64(1); v <= 5; v++ {
		assert.Equal(t, v, receive(t, sub).Version)
	}
}

func TestBrokerDropsStaleVersions(t *testing.T) {
	b := NewBroker(BrokerConfig{}, nil, nil)
	defer b.Close()
	sub, _ := b.Subscribe(Filter{HotelID: "H"})

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, Event{Type: EventTicketUpdated, HotelID: "H", TicketID: "T1", Version: 3}))
	require.NoError(t, b.Publish(ctx, Event{Type: EventTicketUpdated, HotelID: "H", TicketID: "T1", Version: 2}))
	require.NoError(t, b.Publish(ctx, Event{Type: EventTicketUpdated, HotelID: "H", TicketID: "T1", Version: 3}))
	require.NoError(t, b.Publish(ctx, Event{Type: EventTicketUpdated, HotelID: "H", TicketID: "T2", Version: 1}))

	assert.Equal(t, int64(3), receive(t, sub).Version)
	assert.Equal(t, "T2", receive(t, sub).TicketID)
	assertEmpty(t, sub)
}

func TestBrokerAppendOnlyEventsSkipVersionCheck(t *testing.T) {
	b := NewBroker(BrokerConfig{}, nil, nil)
	defer b.Close()
	sub, _ := b.Subscribe(Filter{HotelID: "H"})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Publish(ctx, Event{Type: EventMessageCreated, HotelID: "H", ThreadID: "TH"}))
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, EventMessageCreated, receive(t, sub).Type)
	}
}

func TestBrokerOverflowDropsOldest(t *testing.T) {
	b := NewBroker(BrokerConfig{BufferSize: 2}, nil, nil)
	defer b.Close()
	sub, _ := b.Subscribe(Filter{HotelID: "H"})

	for v := int64(1); v <= 4; v++ {
		require.NoError(t, b.Publish(context.Background(), Event{
			Type: EventTicketUpdated, HotelID: "H", TicketID: "T1", Version: v,
		}))
	}
	assert.Equal(t, uint64(2), sub.Dropped())
	assert.Equal(t, int64(3), receive(t, sub).Version)
	assert.Equal(t, int64(4), receive(t, sub).Version)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := NewBroker(BrokerConfig{}, nil, nil)
	defer b.Close()
	sub, unsubscribe := b.Subscribe(Filter{HotelID: "H"})
	require.Equal(t, 1, b.SubscriberCount())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, b.SubscriberCount())

	select {
	case <-sub.Done():
	default:
		t.Fatal("done not closed after unsubscribe")
	}
	_, ok := <-sub.Events()
	assert.False(t, ok)

	require.NoError(t, b.Publish(context.Background(), Event{Type: EventTicketCreated, HotelID: "H", TicketID: "T", Version: 1}))
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	b := NewBroker(BrokerConfig{Shards: 4, BufferSize: 4}, nil, nil)
	defer b.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sub, unsubscribe := b.Subscribe(Filter{HotelID: "H"})
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range sub.Events() {
			}
		}()
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			unsubscribe()
			unsubscribe()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = b.Publish(context.Background(), Event{Type: EventMessageCreated, HotelID: "H", ThreadID: "TH"})
		}
	}()
	wg.Wait()
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestCloseEndsSubscriptionsAndRejectsPublish(t *testing.T) {
	b := NewBroker(BrokerConfig{}, nil, nil)
	sub, unsubscribe := b.Subscribe(Filter{HotelID: "H"})

	b.Close()
	<-sub.Done()
	unsubscribe()

	err := b.Publish(context.Background(), Event{Type: EventTicketCreated, HotelID: "H"})
	assert.ErrorIs(t, err, ErrBrokerClosed)

	late, _ := b.Subscribe(Filter{HotelID: "H"})
	_, ok := <-late.Events()
	assert.False(t, ok)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestSubscribeNormalizesDepartments(t *testing.T) {
	b := NewBroker(BrokerConfig{}, nil, nil)
	defer b.Close()
	sub, _ := b.Subscribe(Filter{HotelID: "H", Departments: []string{"Room_Service"}})
	assert.Equal(t, []string{"room-service"}, sub.Filter().Departments)

	require.NoError(t, b.Publish(context.Background(), Event{
		Type: EventTicketCreated, HotelID: "H", TicketID: "T", Department: "room_service", Version: 1,
	}))
	assert.Equal(t, "room-service", receive(t, sub).Department)
}

func TestMessageEventCarriesSeq(t *testing.T) {
	thread := &domain.Thread{ID: "TH", HotelID: "H", StayID: "S1", Department: "concierge"}
	event := MessageEvent(thread, &domain.Message{ID: "M", ThreadID: "TH", Seq: 42})
	assert.Equal(t, int64(42), event.Seq)
	assert.Zero(t, event.Version)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"seq":42`)
}
