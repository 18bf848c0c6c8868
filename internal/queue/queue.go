// Package queue provides the submission queue decoupling burst ingestion
// from job-submission rate.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one delivered queue message. A message stays invisible to
// other consumers until its visibility timeout lapses or it is deleted.
type Message struct {
	Body          string
	ReceiptHandle string
}

// Queue defines the transport the pipeline needs: enqueue and
// consume-one-with-visibility-timeout.
type Queue interface {
	// Send enqueues a JSON payload.
	Send(ctx context.Context, body string) error
	// Receive waits up to wait for a single message. A nil message and
	// nil error means the wait elapsed with nothing to deliver.
	Receive(ctx context.Context, wait time.Duration) (*Message, error)
	// Delete acknowledges a delivered message so it is not redelivered.
	Delete(ctx context.Context, receiptHandle string) error
}

// MemoryQueue implements Queue in memory with real visibility-timeout
// redelivery semantics. Used by tests and offline runs.
type MemoryQueue struct {
	mu         sync.Mutex
	messages   []*memoryMessage
	visibility time.Duration
}

type memoryMessage struct {
	body        string
	receipt     string
	availableAt time.Time
	inFlight    bool
}

// NewMemoryQueue creates an in-memory queue with the given visibility
// timeout.
func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	return &MemoryQueue{visibility: visibility}
}

// Send enqueues a payload.
func (q *MemoryQueue) Send(ctx context.Context, body string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.messages = append(q.messages, &memoryMessage{
		body:        body,
		availableAt: time.Now(),
	})
	return nil
}

// Receive delivers at most one visible message, hiding it for the
// visibility timeout.
func (q *MemoryQueue) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	deadline := time.Now().Add(wait)
	for {
		if msg := q.tryReceive(); msg != nil {
			return msg, nil
		}

		if time.Now().After(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (q *MemoryQueue) tryReceive() *Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for _, m := range q.messages {
		if now.Before(m.availableAt) {
			continue
		}
		m.receipt = uuid.NewString()
		m.availableAt = now.Add(q.visibility)
		m.inFlight = true
		return &Message{Body: m.body, ReceiptHandle: m.receipt}
	}
	return nil
}

// Delete removes a delivered message by receipt handle.
func (q *MemoryQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, m := range q.messages {
		if m.receipt == receiptHandle {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len reports the number of queued messages, in flight or not.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}
