package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// historySize is how many recent events a hub keeps for Last-Event-ID
	// replay.
	historySize = 256

	// subscriberBuffer is the per-client queue length. A client that falls
	// further behind loses events.
	subscriberBuffer = 64

	// streamRetry is the reconnection delay suggested to clients.
	streamRetry = 5 * time.Second

	// streamKeepalive is the interval between comment lines on an idle stream.
	streamKeepalive = 15 * time.Second

	// topicStatus carries the rebuild status sent when a client connects.
	topicStatus = "lexigraph.status"
)

// streamEvent is one published event. ID zero marks an event that is not
// part of the replayable history.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// eventHub fans rebuild events out to stream subscribers and keeps a
// bounded history for replay.
type eventHub struct {
	mu      sync.Mutex
	seq     uint64
	history []streamEvent // ring of at most historySize events
	next    int           // ring slot written by the next publish
	subs    map[*subscription]struct{}
}

type subscription struct {
	patterns []string // empty matches every topic
	events   chan streamEvent
}

func newEventHub() *eventHub {
	return &eventHub{
		history: make([]streamEvent, 0, historySize),
		subs:    make(map[*subscription]struct{}),
	}
}

// publish records an event and queues it for every matching subscriber
// without blocking. It returns the event's ID.
func (h *eventHub) publish(topic string, data []byte) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	ev := streamEvent{ID: h.seq, Topic: topic, Data: data}
	if len(h.history) < historySize {
		h.history = append(h.history, ev)
	} else {
		h.history[h.next] = ev
	}
	h.next = (h.next + 1) % historySize

	for sub := range h.subs {
		if !sub.matches(topic) {
			continue
		}
		select {
		case sub.events <- ev:
		default:
		}
	}
	return ev.ID
}

func (h *eventHub) subscribe(patterns []string) *subscription {
	sub := &subscription{patterns: patterns, events: make(chan streamEvent, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *eventHub) unsubscribe(sub *subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// since returns the retained events with an ID above after, oldest first.
func (h *eventHub) since(after uint64) []streamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.history)
	start := 0
	if n == historySize {
		start = h.next
	}
	var out []streamEvent
	for i := range n {
		ev := h.history[(start+i)%n]
		if ev.ID > after {
			out = append(out, ev)
		}
	}
	return out
}

func (s *subscription) matches(topic string) bool {
	if len(s.patterns) == 0 {
		return true
	}
	for _, p := range s.patterns {
		if topicMatches(p, topic) {
			return true
		}
	}
	return false
}

// topicMatches matches a dot-separated topic against a NATS-style pattern:
// "*" matches exactly one segment and a trailing ">" one or more.
func topicMatches(pattern, topic string) bool {
	for {
		p, pRest, pMore := strings.Cut(pattern, ".")
		if p == ">" {
			return topic != ""
		}
		t, tRest, tMore := strings.Cut(topic, ".")
		if p != "*" && p != t {
			return false
		}
		if !pMore || !tMore {
			return pMore == tMore
		}
		pattern, topic = pRest, tRest
	}
}

// parseTopics splits the comma-separated topics query parameter.
func parseTopics(q string) []string {
	return strings.FieldsFunc(q, func(r rune) bool { return r == ',' || r == ' ' })
}

// eventStream writes the text/event-stream framing.
type eventStream struct {
	w io.Writer
	f http.Flusher
}

func (es eventStream) retry(d time.Duration) {
	fmt.Fprintf(es.w, "retry:%d\n\n", d.Milliseconds())
}

func (es eventStream) send(ev streamEvent) {
	if ev.ID != 0 {
		fmt.Fprintf(es.w, "id:%d\n", ev.ID)
	}
	fmt.Fprintf(es.w, "event:%s\ndata:%s\n\n", ev.Topic, ev.Data)
}

func (es eventStream) comment(text string) {
	fmt.Fprintf(es.w, ":%s\n\n", text)
}

func (es eventStream) flush() { es.f.Flush() }

// handleEventStream handles GET /v1/events/stream?topics=a,b. Clients get a
// lexigraph.status event on connect, then the replay after Last-Event-ID,
// then live events.
func (s *LexiconServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub := s.hub.subscribe(parseTopics(r.URL.Query().Get("topics")))
	defer s.hub.unsubscribe(sub)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	es := eventStream{w: w, f: flusher}
	es.retry(streamRetry)
	if sub.matches(topicStatus) {
		if data, err := json.Marshal(s.engine.Status()); err == nil {
			es.send(streamEvent{Topic: topicStatus, Data: data})
		}
	}

	// Subscribing first means a live event may also be in the replay; the
	// ID check skips it.
	var lastID uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			for _, ev := range s.hub.since(id) {
				if sub.matches(ev.Topic) {
					es.send(ev)
					lastID = ev.ID
				}
			}
		}
	}
	es.flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-sub.events:
			if ev.ID <= lastID {
				continue
			}
			es.send(ev)
			es.flush()
		case <-keepalive.C:
			es.comment("keepalive")
			es.flush()
		}
	}
}

// stream publishes event to SSE subscribers as JSON.
func (s *LexiconServer) stream(topic string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to encode stream event", "topic", topic, "err", err)
		return
	}
	s.hub.publish(topic, data)
}
