package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/lexigraph/internal/events"
)

func TestEventHub_BroadcastAndReceive(t *testing.T) {
	hub := newEventHub()

	sub := hub.subscribe(nil) // all topics
	defer hub.unsubscribe(sub)

	hub.publish(events.TopicRebuildStarted, []byte(`{"requested_by":"cli"}`))

	select {
	case evt := <-sub.events:
		if evt.Topic != events.TopicRebuildStarted {
			t.Fatalf("expected topic=%q, got %q", events.TopicRebuildStarted, evt.Topic)
		}
		if string(evt.Data) != `{"requested_by":"cli"}` {
			t.Fatalf("unexpected data %q", string(evt.Data))
		}
		if evt.ID != 1 {
			t.Fatalf("expected id=1, got %d", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventHub_TopicFiltering(t *testing.T) {
	hub := newEventHub()

	sub := hub.subscribe([]string{"lexigraph.rebuild.failed", "lexigraph.rebuild.completed"})
	defer hub.unsubscribe(sub)

	hub.publish(events.TopicRebuildStarted, []byte(`{}`))
	hub.publish(events.TopicRebuildCompleted, []byte(`{}`))
	hub.publish(events.TopicRebuildFailed, []byte(`{}`))

	for _, want := range []string{events.TopicRebuildCompleted, events.TopicRebuildFailed} {
		select {
		case evt := <-sub.events:
			if evt.Topic != want {
				t.Fatalf("expected topic=%q, got %q", want, evt.Topic)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	select {
	case evt := <-sub.events:
		t.Fatalf("unexpected event: topic=%q", evt.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventHub_Unsubscribe(t *testing.T) {
	hub := newEventHub()

	sub := hub.subscribe(nil)
	hub.unsubscribe(sub)

	hub.publish(events.TopicRebuildStarted, []byte(`{}`))

	select {
	case <-sub.events:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventHub_EventsSince(t *testing.T) {
	hub := newEventHub()
	if evts := hub.since(0); len(evts) != 0 {
		t.Fatalf("expected 0 events, got %d", len(evts))
	}

	for range 5 {
		hub.publish(events.TopicRebuildCompleted, []byte(`{}`))
	}

	evts := hub.since(2)
	if len(evts) != 3 {
		t.Fatalf("expected 3 events, got %d", len(evts))
	}
	if evts[0].ID != 3 || evts[1].ID != 4 || evts[2].ID != 5 {
		t.Fatalf("expected IDs [3,4,5], got [%d,%d,%d]", evts[0].ID, evts[1].ID, evts[2].ID)
	}
}

func TestEventHub_RingBufferWrap(t *testing.T) {
	hub := newEventHub()

	for range historySize + 10 {
		hub.publish(events.TopicRebuildCompleted, []byte(`{}`))
	}

	evts := hub.since(0)
	if len(evts) != historySize {
		t.Fatalf("expected %d events, got %d", historySize, len(evts))
	}
	if evts[0].ID != 11 {
		t.Fatalf("expected oldest event ID=11, got %d", evts[0].ID)
	}
}

func TestTopicMatches(t *testing.T) {
	for _, tc := range []struct {
		pattern, topic string
		want           bool
	}{
		{"lexigraph.rebuild.started", "lexigraph.rebuild.started", true},
		{"lexigraph.rebuild.started", "lexigraph.rebuild.failed", false},
		{"lexigraph.rebuild.*", "lexigraph.rebuild.completed", true},
		{"lexigraph.rebuild.*", "lexigraph.status", false},
		{"lexigraph.>", "lexigraph.rebuild.failed", true},
		{"lexigraph.>", "lexigraph.status", true},
		{"lexigraph.>", "lexigraph", false},
		{"*.*", "lexigraph.status", true},
		{"*.*", "lexigraph.rebuild.started", false},
	} {
		if got := topicMatches(tc.pattern, tc.topic); got != tc.want {
			t.Errorf("topicMatches(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
		}
	}
}

// streamFor runs the SSE handler for the duration of fn and returns the body.
func streamFor(t *testing.T, srv *LexiconServer, path, lastEventID string, fn func()) string {
	t.Helper()
	handler := srv.NewHTTPHandler("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", path, nil).WithContext(ctx)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	// Give the handler time to register the subscription.
	time.Sleep(50 * time.Millisecond)
	if fn != nil {
		fn()
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected Content-Type=text/event-stream, got %q", ct)
	}
	return rec.Body.String()
}

func TestHandleEventStream_StatusOnConnect(t *testing.T) {
	srv, _ := rebuilt(t)
	body := streamFor(t, srv, "/v1/events/stream", "", nil)

	if !strings.Contains(body, "retry:5000") {
		t.Fatalf("expected retry hint, got:\n%s", body)
	}
	if !strings.Contains(body, "event:"+topicStatus) || !strings.Contains(body, `"version":"snap-`) {
		t.Fatalf("expected status event with version, got:\n%s", body)
	}
}

func TestHandleEventStream_Rebuild(t *testing.T) {
	srv, _, _ := newTestServerWith(Options{}, dogDictionary...)
	body := streamFor(t, srv, "/v1/events/stream?topics=lexigraph.rebuild.*", "", func() {
		if _, err := srv.Rebuild(context.Background(), "sse", true); err != nil {
			t.Errorf("rebuild: %v", err)
		}
	})

	if strings.Contains(body, "event:"+topicStatus) {
		t.Fatalf("status event should be filtered out, got:\n%s", body)
	}
	started := strings.Index(body, "event:"+events.TopicRebuildStarted)
	completed := strings.Index(body, "event:"+events.TopicRebuildCompleted)
	if started < 0 || completed < started {
		t.Fatalf("expected started then completed, got:\n%s", body)
	}
}

func TestHandleEventStream_LastEventID(t *testing.T) {
	srv, _, _ := newTestServerWith(Options{}, dogDictionary...)

	srv.hub.publish(events.TopicRebuildStarted, []byte(`{"n":1}`))
	srv.hub.publish(events.TopicRebuildCompleted, []byte(`{"n":2}`))
	srv.hub.publish(events.TopicRebuildFailed, []byte(`{"n":3}`))

	body := streamFor(t, srv, "/v1/events/stream", "1", nil)
	if strings.Contains(body, `data:{"n":1}`) {
		t.Fatalf("expected event 1 to be skipped, got:\n%s", body)
	}
	if !strings.Contains(body, `data:{"n":2}`) || !strings.Contains(body, `data:{"n":3}`) {
		t.Fatalf("expected events 2 and 3 in body, got:\n%s", body)
	}
}

func TestSSEEventFormat(t *testing.T) {
	srv, _, _ := newTestServerWith(Options{}, dogDictionary...)
	body := streamFor(t, srv, "/v1/events/stream?topics=lexigraph.rebuild.failed", "", func() {
		srv.emit(context.Background(), events.TopicRebuildFailed, events.RebuildFailed{Error: "disk full"})
	})

	scanner := bufio.NewScanner(strings.NewReader(body))
	var id, event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}

	if id != "1" {
		t.Fatalf("expected id=1, got %q", id)
	}
	if event != events.TopicRebuildFailed {
		t.Fatalf("expected event=%s, got %q", events.TopicRebuildFailed, event)
	}
	if !json.Valid([]byte(data)) || data != `{"error":"disk full"}` {
		t.Fatalf("unexpected data %q", data)
	}
}

func TestParseTopics(t *testing.T) {
	got := parseTopics(" lexigraph.rebuild.*, ,lexigraph.status,")
	want := []string{"lexigraph.rebuild.*", "lexigraph.status"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("parseTopics = %q, want %q", got, want)
	}
	if got := parseTopics(""); len(got) != 0 {
		t.Fatalf("parseTopics(\"\") = %q, want none", got)
	}
}

func TestEventStream_Framing(t *testing.T) {
	rec := httptest.NewRecorder()
	es := eventStream{w: rec, f: rec}

	es.retry(streamRetry)
	es.send(streamEvent{Topic: topicStatus, Data: []byte(`{}`)})
	es.send(streamEvent{ID: 7, Topic: events.TopicRebuildStarted, Data: []byte(`{"a":1}`)})
	es.comment("keepalive")

	want := "retry:5000\n\n" +
		"event:lexigraph.status\ndata:{}\n\n" +
		"id:7\nevent:lexigraph.rebuild.started\ndata:{\"a\":1}\n\n" +
		":keepalive\n\n"
	if rec.Body.String() != want {
		t.Fatalf("stream =\n%q\nwant\n%q", rec.Body.String(), want)
	}
}
