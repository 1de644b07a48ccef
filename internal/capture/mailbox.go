package capture

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"snapbox/internal/metrics"
)

// Result is the worker's reply to a save request.
type Result struct {
	RequestID   string
	PublishedAt time.Time
	// JPEG holds the exact bytes written to the snapshot file.
	JPEG []byte
	Err  error
}

// Request is a pending save request. Reply receives exactly one Result.
type Request struct {
	ID    string
	Label string
	Reply <-chan Result

	reply chan Result
}

func newRequest(label string) *Request {
	ch := make(chan Result, 1)
	return &Request{
		ID:    uuid.NewString(),
		Label: label,
		Reply: ch,
		reply: ch,
	}
}

func (r *Request) respond(res Result) {
	res.RequestID = r.ID
	r.reply <- res
}

// mailbox is an unbounded multi-producer queue drained by the worker.
type mailbox struct {
	mu     sync.Mutex
	queue  []*Request
	closed bool
}

// push queues r. It reports false once the mailbox has been closed.
func (m *mailbox) push(r *Request) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, r)
	n := len(m.queue)
	m.mu.Unlock()
	metrics.CaptureQueueDepth.Set(float64(n))
	return true
}

// pop returns the oldest request, or nil if none is pending.
func (m *mailbox) pop() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	r := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	metrics.CaptureQueueDepth.Set(float64(len(m.queue)))
	return r
}

// close refuses further requests and returns every pending one.
func (m *mailbox) close() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	pending := m.queue
	m.queue = nil
	metrics.CaptureQueueDepth.Set(0)
	return pending
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
