package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/ruteri/university-ledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Queue = (*InMemory)(nil)
	_ Queue = (*RedisQueue)(nil)

	_ ledger.Sink = (*LogSink)(nil)
)

type pinged struct {
	Who common.Address `json:"who"`
}

func (pinged) Signature() string { return "Pinged(address)" }

var caller = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

func emit(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	_, err := l.Execute(context.Background(), ledger.Call{From: caller, Method: "ping"}, func(tx *ledger.Tx) error {
		tx.Emit(common.Address{}, pinged{Who: tx.Caller()})
		return nil
	})
	require.NoError(t, err)
}

func TestInMemory(t *testing.T) {
	q := NewInMemory(4)
	l := ledger.New(nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	l.AddSink(q)

	emit(t, l)
	emit(t, l)
	assert.Equal(t, 2, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	for seq := uint64(1); seq <= 2; seq++ {
		msg := <-msgs
		assert.Equal(t, "Pinged", msg.Type)

		var decoded struct {
			Seq     uint64 `json:"seq"`
			Name    string `json:"name"`
			Payload pinged `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(msg.Body, &decoded))
		assert.Equal(t, seq, decoded.Seq)
		assert.Equal(t, caller, decoded.Payload.Who)
	}

	cancel()
	for range msgs {
	}
}

func TestInMemory_Full(t *testing.T) {
	q := NewInMemory(1)
	n := ledger.Notification{Seq: 1, Name: "Pinged", Payload: pinged{}}

	require.NoError(t, q.Publish(context.Background(), n))
	assert.ErrorIs(t, q.Publish(context.Background(), n), ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	l := ledger.New(nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	l.AddSink(NewLogSink(logger, slog.LevelInfo))
	emit(t, l)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Notification", entry["msg"])
	assert.Equal(t, "Pinged", entry["name"])
	assert.EqualValues(t, 1, entry["seq"])
}

func TestLogSink_BelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	require.NoError(t, NewLogSink(logger, slog.LevelDebug).Publish(context.Background(), ledger.Notification{Name: "Pinged"}))
	assert.Empty(t, buf.String())
}

func TestSerialize(t *testing.T) {
	msg := Message{Type: "GradeRecorded", Body: []byte(`{"a":"x|y"}`)}
	assert.Equal(t, msg, deserialize(serialize(msg)))
	assert.Equal(t, Message{Body: []byte("raw")}, deserialize("raw"))
}

func TestRedisQueue_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	q := NewRedisQueue(client, "")
	assert.Equal(t, DefaultRedisKey, q.Key())
	assert.Equal(t, "redis", q.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, q.Publish(ctx, ledger.Notification{Seq: 1, Name: "Pinged", Payload: pinged{}}))
	assert.Error(t, q.Ping(ctx))
}
