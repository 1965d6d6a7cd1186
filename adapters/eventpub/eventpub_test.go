package eventpub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/crudkit/core/events"
)

type fakeNATS struct {
	subjects []string
	payloads [][]byte
	flushed  int
	drained  bool
	err      error
}

func (f *fakeNATS) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeNATS) FlushWithContext(context.Context) error {
	f.flushed++
	return nil
}

func (f *fakeNATS) Drain() error {
	f.drained = true
	return nil
}

func TestNATS_Publish(t *testing.T) {
	conn := &fakeNATS{}
	p := newNATS(conn, "shop.", true, true)

	e := events.New("author", "create", int64(1), map[string]any{"id": int64(1), "name": "A"})
	require.NoError(t, p.Publish(context.Background(), e))

	assert.Equal(t, []string{"shop.author.created"}, conn.subjects)
	assert.Equal(t, 1, conn.flushed)

	var got events.Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "author.created", got.Name)
	assert.Equal(t, "A", got.Data["name"])

	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
	assert.ErrorIs(t, p.Publish(context.Background(), e), ErrClosed)
}

func TestNATS_PublishError(t *testing.T) {
	conn := &fakeNATS{err: errors.New("connection closed")}
	p := newNATS(conn, "crudkit", false, false)

	err := p.Publish(context.Background(), events.New("author", "destroy", int64(1), nil))
	assert.ErrorContains(t, err, "crudkit.author.deleted")

	require.NoError(t, p.Close())
	assert.False(t, conn.drained, "borrowed connections are not drained")
}

type fakeRedis struct {
	args   []*redis.XAddArgs
	err    error
	closed bool
}

func (f *fakeRedis) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.args = append(f.args, a)
	cmd.SetVal("1-0")
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisStreams_Publish(t *testing.T) {
	c := &fakeRedis{}
	p := newRedisStreams(c, "events", 1000, true)

	e := events.New("author", "partial_update", int64(7), map[string]any{"name": "B"})
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, c.args, 1)
	a := c.args[0]
	assert.Equal(t, "events", a.Stream)
	assert.Equal(t, int64(1000), a.MaxLen)
	assert.True(t, a.Approx)

	values := a.Values.(map[string]any)
	assert.Equal(t, "author.updated", values["name"])
	assert.Equal(t, "author", values["model"])
	assert.Equal(t, e.ID, values["id"])

	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &got))
	assert.Equal(t, float64(7), got.Key)

	require.NoError(t, p.Close())
	assert.True(t, c.closed)
}

func TestRedisStreams_PublishError(t *testing.T) {
	c := &fakeRedis{err: errors.New("READONLY")}
	p := newRedisStreams(c, "events", 0, false)

	err := p.Publish(context.Background(), events.New("author", "create", int64(1), nil))
	assert.ErrorContains(t, err, "xadd events")

	require.NoError(t, p.Close())
	assert.False(t, c.closed)
}

func TestNewRedisStreams_BadURL(t *testing.T) {
	_, err := NewRedisStreams(RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

func TestForwardThroughBus(t *testing.T) {
	conn := &fakeNATS{}
	bus := events.NewBus(zerolog.Nop())
	bus.Forward("author.*", newNATS(conn, "crudkit", false, false))

	require.NoError(t, bus.Publish(context.Background(), events.New("author", "create", int64(1), nil)))
	require.NoError(t, bus.Publish(context.Background(), events.New("book", "create", int64(1), nil)))
	assert.Equal(t, []string{"crudkit.author.created"}, conn.subjects)
}
