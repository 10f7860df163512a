// Package sse streams item and collection events to HTTP clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/brewmint/internal/models"
)

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ItemEvent is the payload of item.* events. ItemID is -1 for deletions.
// Item is the ledger view after the change; MetadataCID and Handle are set
// on submissions.
type ItemEvent struct {
	Collection  uint32       `json:"collection"`
	File        string       `json:"file"`
	ItemID      int          `json:"item_id"`
	Item        *models.Item `json:"item,omitempty"`
	MetadataCID string       `json:"metadata_cid,omitempty"`
	Handle      string       `json:"handle,omitempty"`
}

// CollectionEvent counts the item events of one collection since its
// previous collection.updated event.
type CollectionEvent struct {
	Collection uint32 `json:"collection"`
	Changed    int    `json:"changed"`
	Deleted    int    `json:"deleted"`
	Submitted  int    `json:"submitted"`
}

// Item event kinds accepted by PublishItemEvent.
const (
	KindCreated   = "created"
	KindUpdated   = "updated"
	KindDeleted   = "deleted"
	KindSubmitted = "submitted"
)

// TypeCollectionUpdated is the event type of CollectionEvent messages.
const TypeCollectionUpdated = "collection.updated"

type itemEventReq struct {
	kind string
	ev   ItemEvent
}

type subscriber struct {
	ch     chan []byte
	topics []string
}

// wants reports whether eventType matches one of the subscribed topics.
// A topic matches its own type and every type below it ("item" matches
// "item.submitted"). No topics means everything.
func (s subscriber) wants(eventType string) bool {
	if len(s.topics) == 0 {
		return true
	}
	for _, topic := range s.topics {
		if eventType == topic || strings.HasPrefix(eventType, topic+".") {
			return true
		}
	}
	return false
}

type collectionState struct {
	pending CollectionEvent
	dirty   bool
	last    time.Time
}

func (s *collectionState) add(kind string) {
	switch kind {
	case KindCreated, KindUpdated:
		s.pending.Changed++
	case KindDeleted:
		s.pending.Deleted++
	case KindSubmitted:
		s.pending.Submitted++
	}
	s.dirty = true
}

// Broker fans events out to subscribers.
//
// The run loop owns the subscribers and the per collection counters.
// collection.updated is sent on the first change of a collection and then
// at most once per throttle interval while changes keep arriving; the last
// change of a burst is always reported.
type Broker struct {
	throttle time.Duration

	subscribeCh   chan subscriber
	unsubscribeCh chan chan []byte
	itemEventCh   chan itemEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker with the given collection.updated throttle.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		throttle:      throttle,
		subscribeCh:   make(chan subscriber),
		unsubscribeCh: make(chan chan []byte),
		itemEventCh:   make(chan itemEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]subscriber)
	collections := make(map[uint32]*collectionState)
	var seq uint64

	ticker := time.NewTicker(b.throttle)
	defer ticker.Stop()

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch, sub := range clients {
			if !sub.wants(event.Type) {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client, drop.
			}
		}
	}

	flush := func(state *collectionState, now time.Time) {
		broadcast(Event{Type: TypeCollectionUpdated, Data: state.pending})
		state.pending = CollectionEvent{Collection: state.pending.Collection}
		state.dirty = false
		state.last = now
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case req := <-b.itemEventCh:
			switch req.kind {
			case KindCreated, KindUpdated, KindDeleted, KindSubmitted:
			default:
				continue
			}
			broadcast(Event{Type: "item." + req.kind, Data: req.ev})

			state, ok := collections[req.ev.Collection]
			if !ok {
				state = &collectionState{pending: CollectionEvent{Collection: req.ev.Collection}}
				collections[req.ev.Collection] = state
			}
			state.add(req.kind)
			if now := time.Now(); now.Sub(state.last) >= b.throttle {
				flush(state, now)
			}

		case now := <-ticker.C:
			for _, state := range collections {
				if state.dirty && now.Sub(state.last) >= b.throttle {
					flush(state, now)
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the run loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a subscriber for the given topics ("item",
// "item.submitted", "collection", ...) and returns its channel.
func (b *Broker) Subscribe(topics ...string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscriber{ch: ch, topics: topics}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of subscribers.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishItemEvent sends item.<kind> and counts it towards the next
// collection.updated of ev.Collection. Unknown kinds are dropped.
func (b *Broker) PublishItemEvent(kind string, ev ItemEvent) {
	if b.closed.Load() {
		return
	}
	select {
	case b.itemEventCh <- itemEventReq{kind: kind, ev: ev}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events (GET /api/events). Repeated topic query
// parameters narrow the stream, e.g. ?topic=item.submitted&topic=collection.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query()["topic"]...)
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
