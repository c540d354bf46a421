// Package natsutil publishes JSON events over NATS with OpenTelemetry trace
// context carried in message headers.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publish serializes v as JSON and publishes to subject, injecting the
// trace context from ctx.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("natsutil: marshal %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("natsutil: publish %s: %w", subject, err)
	}
	return nil
}

// Publisher publishes events under a fixed subject prefix.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// NewPublisher returns a Publisher; prefix is prepended verbatim to subjects.
func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	return &Publisher{nc: nc, prefix: prefix}
}

// Publish sends event as JSON on prefix+subject.
func (p *Publisher) Publish(ctx context.Context, subject string, event any) error {
	return Publish(ctx, p.nc, p.prefix+subject, event)
}

// Close drains the underlying connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
