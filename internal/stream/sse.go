package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// DoneSentinel is the payload of the frame that ends a stream.
const DoneSentinel = "[DONE]"

// Sink receives events in order. Implementations report the first write
// failure and every later Send returns an error.
type Sink interface {
	Send(ev Event) error
}

// Multiplexer serializes events from every stage of a request onto one
// SSE connection. Sends are ordered and safe for concurrent callers, but the
// pipeline writes from a single goroutine; batch workers never hold it.
type Multiplexer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	err     error
	done    bool
	sent    int
}

// NewMultiplexer wraps w. If w is an http.Flusher every frame is flushed.
func NewMultiplexer(w io.Writer) *Multiplexer {
	m := &Multiplexer{w: w}
	if f, ok := w.(http.Flusher); ok {
		m.flusher = f
	}
	return m
}

// PrepareHeaders sets the SSE response headers.
func PrepareHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// Send writes one event as a data frame.
func (m *Multiplexer) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeFrame(data)
}

// Done writes the terminal sentinel. Later sends fail.
func (m *Multiplexer) Done() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeFrame([]byte(DoneSentinel)); err != nil {
		return err
	}
	m.done = true
	return nil
}

// Err returns the first write error, if any.
func (m *Multiplexer) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Sent returns the number of frames written.
func (m *Multiplexer) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

func (m *Multiplexer) writeFrame(data []byte) error {
	if m.done {
		return domain.ErrStreamClosed
	}
	if m.err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStreamClosed, m.err)
	}

	if _, err := fmt.Fprintf(m.w, "data: %s\n\n", data); err != nil {
		m.err = err
		return err
	}
	if m.flusher != nil {
		m.flusher.Flush()
	}
	m.sent++
	return nil
}

// Recorder is an in-memory Sink.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error // returned by every Send when set
}

// Send records ev.
func (r *Recorder) Send(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Tee sends each event to every sink in order and stops at the first error.
type Tee []Sink

// Send implements Sink.
func (t Tee) Send(ev Event) error {
	for _, s := range t {
		if err := s.Send(ev); err != nil {
			return err
		}
	}
	return nil
}
