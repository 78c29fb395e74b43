package events

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/observability"
)

// ErrBrokerClosed is returned by Publish after Close.
var ErrBrokerClosed = errors.New("realtime broker closed")

// Publisher is the part of the broker the workflow depends on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// BrokerConfig tunes the registry.
type BrokerConfig struct {
	Shards       int
	BufferSize   int
	WatermarkTTL time.Duration
}

func (c BrokerConfig) withDefaults() BrokerConfig {
	if c.Shards <= 0 {
		c.Shards = 32
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 64
	}
	if c.WatermarkTTL <= 0 {
		c.WatermarkTTL = 15 * time.Minute
	}
	return c
}

// Filter selects the events a subscription receives. Departments nil means all.
type Filter struct {
	HotelID         string
	StayID          *string
	TicketID        *string
	Departments     []string
	ExcludeInternal bool
}

// Matches reports whether event passes the filter.
func (f Filter) Matches(event Event) bool {
	if f.HotelID != event.HotelID {
		return false
	}
	if f.ExcludeInternal && event.Internal {
		return false
	}
	if f.TicketID != nil && *f.TicketID != event.TicketID {
		return false
	}
	if f.StayID != nil && (event.StayID == nil || *event.StayID != *f.StayID) {
		return false
	}
	if f.Departments == nil {
		return true
	}
	department := domain.NormalizeDepartment(event.Department)
	for _, dept := range f.Departments {
		if dept == department {
			return true
		}
	}
	return false
}

// Subscription is one live realtime stream. Events are delivered on a
// bounded buffer; when it is full the oldest pending event is discarded.
type Subscription struct {
	id        uint64
	filter    Filter
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

// Events yields matching events in publish order. Closed on unsubscribe.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed when the subscription is removed from the broker.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Filter() Filter { return s.filter }

// Dropped counts events discarded because the buffer overflowed.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		close(s.events)
	})
}

// deliver must be called with the owning shard locked; sends never block.
func (s *Subscription) deliver(event Event) bool {
	select {
	case s.events <- event:
		return true
	default:
	}
	select {
	case <-s.events:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.events <- event:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

type shard struct {
	mu   sync.Mutex
	subs map[string]map[uint64]*Subscription
}

// Broker is the in-process realtime fan-out. Subscriptions are sharded by
// hotel id so publishes to different hotels never contend on one lock.
type Broker struct {
	cfg        BrokerConfig
	shards     []*shard
	watermarks *cache.Cache
	nextID     atomic.Uint64
	closed     atomic.Bool
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewBroker creates an empty broker.
func NewBroker(cfg BrokerConfig, logger *zap.Logger, metrics *observability.Metrics) *Broker {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Broker{
		cfg:        cfg,
		shards:     make([]*shard, cfg.Shards),
		watermarks: cache.New(cfg.WatermarkTTL, 2*cfg.WatermarkTTL),
		logger:     logger,
		metrics:    metrics,
	}
	for i := range b.shards {
		b.shards[i] = &shard{subs: make(map[string]map[uint64]*Subscription)}
	}
	return b
}

func (b *Broker) shardFor(hotelID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(hotelID))
	return b.shards[h.Sum32()%uint32(len(b.shards))]
}

// Subscribe registers filter and returns the subscription with its
// unsubscribe hook. Unsubscribe is idempotent and safe to call while a
// publish is in flight.
func (b *Broker) Subscribe(filter Filter) (*Subscription, func()) {
	if filter.Departments != nil {
		filter.Departments = domain.NormalizeDepartments(filter.Departments)
		if filter.Departments == nil {
			filter.Departments = []string{}
		}
	}
	sub := &Subscription{
		id:     b.nextID.Add(1),
		filter: filter,
		events: make(chan Event, b.cfg.BufferSize),
		done:   make(chan struct{}),
	}

	sh := b.shardFor(filter.HotelID)
	sh.mu.Lock()
	if b.closed.Load() {
		sh.mu.Unlock()
		sub.close()
		return sub, func() {}
	}
	hotelSubs := sh.subs[filter.HotelID]
	if hotelSubs == nil {
		hotelSubs = make(map[uint64]*Subscription)
		sh.subs[filter.HotelID] = hotelSubs
	}
	hotelSubs[sub.id] = sub
	sh.mu.Unlock()
	b.metrics.SubscriberAdded()

	var once sync.Once
	return sub, func() {
		once.Do(func() { b.remove(sub) })
	}
}

func (b *Broker) remove(sub *Subscription) {
	sh := b.shardFor(sub.filter.HotelID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	hotelSubs := sh.subs[sub.filter.HotelID]
	if _, ok := hotelSubs[sub.id]; !ok {
		return
	}
	delete(hotelSubs, sub.id)
	if len(hotelSubs) == 0 {
		delete(sh.subs, sub.filter.HotelID)
	}
	sub.close()
	b.metrics.SubscriberRemoved()
}

// Publish fans event out to every matching subscription of its hotel.
// Created/updated events older than the last version published for the
// same record are dropped so no subscriber observes a regression.
func (b *Broker) Publish(_ context.Context, event Event) error {
	if b.closed.Load() {
		return ErrBrokerClosed
	}
	event.Department = domain.NormalizeDepartment(event.Department)

	sh := b.shardFor(event.HotelID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if key := event.recordKey(); key != "" && event.Version > 0 {
		if last, ok := b.watermarks.Get(key); ok && last.(int64) >= event.Version {
			b.metrics.EventDropped("stale")
			b.logger.Debug("dropping stale realtime event",
				zap.String("type", string(event.Type)),
				zap.String("record", key),
				zap.Int64("version", event.Version))
			return nil
		}
		b.watermarks.SetDefault(key, event.Version)
	}

	delivered := 0
	for _, sub := range sh.subs[event.HotelID] {
		if !sub.filter.Matches(event) {
			continue
		}
		before := sub.Dropped()
		if sub.deliver(event) {
			delivered++
		}
		if sub.Dropped() > before {
			b.metrics.EventDropped("overflow")
		}
	}
	b.metrics.EventPublished(string(event.Type), delivered)
	return nil
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broker) SubscriberCount() int {
	total := 0
	for _, sh := range b.shards {
		sh.mu.Lock()
		for _, hotelSubs := range sh.subs {
			total += len(hotelSubs)
		}
		sh.mu.Unlock()
	}
	return total
}

// Close unsubscribes everyone and rejects further publishes.
func (b *Broker) Close() {
	if b.closed.Swap(true) {
		return
	}
	removed := 0
	for _, sh := range b.shards {
		sh.mu.Lock()
		for hotelID, hotelSubs := range sh.subs {
			for _, sub := range hotelSubs {
				sub.close()
				b.metrics.SubscriberRemoved()
				removed++
			}
			delete(sh.subs, hotelID)
		}
		sh.mu.Unlock()
	}
	b.watermarks.Flush()
	b.logger.Info("realtime broker closed", zap.Int("subscriptions_closed", removed))
}
