package queue

import "errors"

// ErrQueueFull is returned when the completion queue cannot accept another
// message. The caller is expected to compensate (cancel the order) rather
// than block a request thread on the hand-off.
var ErrQueueFull = errors.New("completion queue full")

// Message carries an order ID through the async completion path. It holds no
// mutable order state, only the identity and the delivery attempt count.
type Message struct {
	OrderID  uint
	Attempts int
}

// CompletionQueue is the at-least-once hand-off between the order service and
// the completion workers. Redelivery is the worker's job: a failed completion
// is re-enqueued with a bumped attempt count, and the worker's idempotent
// terminal-state check makes duplicate delivery a safe no-op.
type CompletionQueue struct {
	ch chan Message
}

// New creates a queue with the given buffer size.
func New(buffer int) *CompletionQueue {
	if buffer <= 0 {
		buffer = 1024
	}
	return &CompletionQueue{ch: make(chan Message, buffer)}
}

// Enqueue hands an order off for async completion. Fails with ErrQueueFull
// instead of blocking.
func (q *CompletionQueue) Enqueue(m Message) error {
	select {
	case q.ch <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Messages is the consumer side of the queue.
func (q *CompletionQueue) Messages() <-chan Message {
	return q.ch
}

// Depth reports the number of messages waiting.
func (q *CompletionQueue) Depth() int {
	return len(q.ch)
}
