// Package events defines the rebuild lifecycle events and carries them
// over NATS.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

const (
	TopicRebuildRequested = "lexigraph.rebuild.requested"
	TopicRebuildStarted   = "lexigraph.rebuild.started"
	TopicRebuildCompleted = "lexigraph.rebuild.completed"
	TopicRebuildFailed    = "lexigraph.rebuild.failed"

	// TopicAll matches every lexigraph topic.
	TopicAll = "lexigraph.>"
)

// RebuildRequested asks a server to rebuild the graph.
type RebuildRequested struct {
	RequestedBy string `json:"requested_by,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type RebuildStarted struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

type RebuildCompleted struct {
	Result *model.RebuildResult `json:"result"`
}

type RebuildFailed struct {
	RequestedBy string `json:"requested_by,omitempty"`
	Error       string `json:"error"`
}

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber delivers raw payloads published on a topic. Topics may use
// NATS wildcards. fn is called serially for one subscription.
type Subscriber interface {
	Subscribe(topic string, fn func(data []byte)) (unsubscribe func(), err error)
	Close() error
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, string, any) error { return nil }
func (discard) Close() error                              { return nil }
