package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"trend-signals/acquisition"
)

// Broker fans acquisition progress out to Server-Sent Events clients
type Broker struct {
	mu      sync.RWMutex
	clients map[chan message]struct{}

	join   chan chan message
	leave  chan chan message
	events chan message
	done   chan struct{}
}

// message is one SSE frame
type message struct {
	event string
	data  []byte
}

// NewBroker creates a new SSE broker
func NewBroker() *Broker {
	return &Broker{
		clients: make(map[chan message]struct{}),
		join:    make(chan chan message),
		leave:   make(chan chan message),
		events:  make(chan message, 256),
		done:    make(chan struct{}),
	}
}

// Run dispatches events until ctx is done, then disconnects every client
func (b *Broker) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for ch := range b.clients {
				delete(b.clients, ch)
				close(ch)
			}
			b.mu.Unlock()
			return

		case ch := <-b.join:
			b.mu.Lock()
			b.clients[ch] = struct{}{}
			n := len(b.clients)
			b.mu.Unlock()
			log.Printf("📡 Event stream client connected (%d total)", n)

		case ch := <-b.leave:
			b.mu.Lock()
			if _, ok := b.clients[ch]; ok {
				delete(b.clients, ch)
				close(ch)
			}
			n := len(b.clients)
			b.mu.Unlock()
			log.Printf("📡 Event stream client left (%d total)", n)

		case msg := <-b.events:
			b.mu.RLock()
			for ch := range b.clients {
				select {
				case ch <- msg:
				default:
					// slow client misses the frame
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Clients returns the number of connected clients
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// ServeHTTP streams events to one client until it disconnects or the broker stops
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := make(chan message, 16)
	select {
	case b.join <- ch:
	case <-b.done:
		return
	case <-r.Context().Done():
		return
	}

	for {
		select {
		case <-r.Context().Done():
			select {
			case b.leave <- ch:
			case <-b.done:
			}
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
			flusher.Flush()
		}
	}
}

// Broadcast queues an event for every client. Events are dropped when the queue is full.
func (b *Broker) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
		"at":      time.Now().UTC(),
	})
	if err != nil {
		log.Printf("⚠️  Failed to encode %s event: %v", event, err)
		return
	}

	select {
	case b.events <- message{event: event, data: data}:
	default:
	}
}

// OnAttempt implements acquisition.Observer
func (b *Broker) OnAttempt(keyword string, attempt int, o acquisition.Outcome) {
	payload := map[string]interface{}{
		"keyword": keyword,
		"attempt": attempt,
		"outcome": o.Kind.String(),
	}
	if o.Err != nil {
		payload["error"] = o.Err.Error()
	}
	b.Broadcast("attempt", payload)
}

// OnCooldown implements acquisition.Observer
func (b *Broker) OnCooldown(keyword string, kind acquisition.CooldownKind, d time.Duration) {
	b.Broadcast("cooldown", map[string]interface{}{
		"keyword": keyword,
		"kind":    kind,
		"seconds": d.Seconds(),
	})
}

// OnKeywordDone implements acquisition.Observer
func (b *Broker) OnKeywordDone(res acquisition.KeywordResult) {
	b.Broadcast("keyword", res)
}
