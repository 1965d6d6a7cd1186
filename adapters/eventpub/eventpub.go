// Package eventpub forwards change events to external brokers.
//
// Publishers satisfy events.Publisher and are attached to the bus with
// Bus.Forward. Payloads are the JSON encoding of events.Event.
package eventpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/artpar/crudkit/core/events"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("eventpub: publisher closed")

// natsConn is the subset of *nats.Conn used here.
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATS publishes each event on "<prefix>.<event name>".
type NATS struct {
	conn   natsConn
	prefix string
	flush  bool
	owns   bool
}

// NATSConfig configures a NATS publisher.
type NATSConfig struct {
	URL    string
	Prefix string

	// Flush waits for the server to acknowledge each publish.
	Flush bool

	// Conn is used instead of dialing URL. It is not drained on Close.
	Conn *nats.Conn
}

// NewNATS connects to cfg.URL unless cfg.Conn is set.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "crudkit"
	}
	if cfg.Conn != nil {
		return newNATS(cfg.Conn, cfg.Prefix, cfg.Flush, false), nil
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	nc, err := nats.Connect(cfg.URL, nats.Name("crudkit"))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	return newNATS(nc, cfg.Prefix, cfg.Flush, true), nil
}

func newNATS(conn natsConn, prefix string, flush, owns bool) *NATS {
	return &NATS{conn: conn, prefix: strings.TrimSuffix(prefix, "."), flush: flush, owns: owns}
}

// Subject returns the subject e is published on.
func (p *NATS) Subject(e events.Event) string {
	return p.prefix + "." + e.Name
}

// Publish implements events.Publisher.
func (p *NATS) Publish(ctx context.Context, e events.Event) error {
	if p.conn == nil {
		return ErrClosed
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.Name, err)
	}
	if err := p.conn.Publish(p.Subject(e), data); err != nil {
		return fmt.Errorf("publish %s: %w", p.Subject(e), err)
	}
	if p.flush {
		return p.conn.FlushWithContext(ctx)
	}
	return nil
}

// Close drains the connection if the publisher dialed it.
func (p *NATS) Close() error {
	conn := p.conn
	p.conn = nil
	if conn == nil || !p.owns {
		return nil
	}
	return conn.Drain()
}

// redisClient is the subset of the go-redis client used here.
type redisClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisStreams appends each event to a stream.
type RedisStreams struct {
	client redisClient
	stream string
	maxLen int64
	owns   bool
}

// RedisConfig configures a Redis Streams publisher.
type RedisConfig struct {
	URL    string
	Stream string

	// MaxLen caps the stream approximately. Zero leaves it unbounded.
	MaxLen int64

	// Client is used instead of dialing URL. It is not closed on Close.
	Client redis.UniversalClient
}

// NewRedisStreams connects to cfg.URL unless cfg.Client is set.
func NewRedisStreams(cfg RedisConfig) (*RedisStreams, error) {
	if cfg.Stream == "" {
		cfg.Stream = "crudkit:events"
	}
	if cfg.Client != nil {
		return newRedisStreams(cfg.Client, cfg.Stream, cfg.MaxLen, false), nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return newRedisStreams(redis.NewClient(opts), cfg.Stream, cfg.MaxLen, true), nil
}

func newRedisStreams(c redisClient, stream string, maxLen int64, owns bool) *RedisStreams {
	return &RedisStreams{client: c, stream: stream, maxLen: maxLen, owns: owns}
}

// Publish implements events.Publisher. The entry carries the event name,
// model and id as separate fields next to the JSON payload so consumers
// can route without decoding.
func (p *RedisStreams) Publish(ctx context.Context, e events.Event) error {
	if p.client == nil {
		return ErrClosed
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.Name, err)
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"id":      e.ID,
			"name":    e.Name,
			"model":   e.Model,
			"payload": string(data),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Close closes the client if the publisher created it.
func (p *RedisStreams) Close() error {
	c := p.client
	p.client = nil
	if c == nil || !p.owns {
		return nil
	}
	return c.Close()
}
