package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Bus publishes events to and receives requests from a NATS server over a
// single connection.
type Bus struct {
	nc *nats.Conn
}

// Connect dials url. The connection reconnects forever; opts are applied
// after the defaults.
func Connect(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, append([]nats.Option{
		nats.Name("lexigraph"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &Bus{nc: nc}, nil
}

// Publish JSON-encodes event onto topic.
func (b *Bus) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	return b.nc.Publish(topic, data)
}

// Subscribe registers fn for topic and returns once the server knows about
// the subscription.
func (b *Bus) Subscribe(topic string, fn func(data []byte)) (func(), error) {
	sub, err := b.nc.Subscribe(topic, func(m *nats.Msg) { fn(m.Data) })
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *Bus) Close() error {
	b.nc.Close()
	return nil
}
