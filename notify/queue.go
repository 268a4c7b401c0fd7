package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ruteri/university-ledger/ledger"
)

var ErrQueueFull = errors.New("notification queue full")

// Message is a serialized notification as seen by consumers.
type Message struct {
	// Type is the notification name, e.g. "CredentialIssued".
	Type string
	// Body is the JSON encoded ledger.Notification.
	Body []byte
}

// Queue is implemented by sinks that can also be consumed from.
type Queue interface {
	ledger.Sink
	Consume(ctx context.Context) (<-chan Message, error)
}

// NewMessage encodes n for transport.
func NewMessage(n ledger.Notification) (Message, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return Message{}, fmt.Errorf("encoding notification %d: %w", n.Seq, err)
	}
	return Message{Type: n.Name, Body: body}, nil
}

// InMemory is a bounded channel-backed queue.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a queue holding up to size undelivered messages.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

func (q *InMemory) Name() string { return "memory" }

// Publish enqueues n. It never blocks: when the buffer is full the
// notification is dropped and ErrQueueFull returned.
func (q *InMemory) Publish(ctx context.Context, n ledger.Notification) error {
	msg, err := NewMessage(n)
	if err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Consume returns a channel for workers. It is closed when ctx is done.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Len returns the number of queued messages.
func (q *InMemory) Len() int { return len(q.ch) }

// serialize stores messages as Type|Body.
func serialize(msg Message) string {
	return msg.Type + "|" + string(msg.Body)
}

func deserialize(s string) Message {
	typ, body, ok := strings.Cut(s, "|")
	if !ok {
		return Message{Body: []byte(s)}
	}
	return Message{Type: typ, Body: []byte(body)}
}
