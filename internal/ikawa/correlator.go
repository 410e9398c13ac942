package ikawa

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

// Correlator matches the one outstanding command to its reply by sequence
// number. It holds a single pending slot; the sequence counter starts at 1
// and advances only when a reply is correlated.
type Correlator struct {
	log *slog.Logger

	mu      sync.Mutex
	next    uint32 // sequence of the next command, never 0
	pending bool
	result  chan *ikawapb.Response
}

// NewCorrelator returns a Correlator whose first sequence number is 1.
func NewCorrelator(logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{log: logger, next: 1}
}

// Sequence returns the sequence number the next command will carry.
func (c *Correlator) Sequence() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Submit claims the pending slot and returns the sequence number to send.
// It fails with ErrCommandPending while another command awaits its reply.
func (c *Correlator) Submit() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return 0, fmt.Errorf("%w (seq %d)", ErrCommandPending, c.next)
	}
	c.pending = true
	c.result = make(chan *ikawapb.Response, 1)
	return c.next, nil
}

// Await blocks until the submitted command's reply is delivered, timeout
// elapses or ctx ends. The slot is free again when Await returns.
func (c *Correlator) Await(ctx context.Context, timeout time.Duration) (*ikawapb.Response, error) {
	c.mu.Lock()
	if !c.pending {
		c.mu.Unlock()
		return nil, fmt.Errorf("ikawa: await: no command submitted")
	}
	result := c.result
	seq := c.next
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var cause error
	select {
	case resp := <-result:
		return resp, nil
	case <-timer.C:
		cause = fmt.Errorf("%w: seq %d after %v", ErrResponseTimeout, seq, timeout)
	case <-ctx.Done():
		cause = fmt.Errorf("ikawa: await seq %d: %w", seq, ctx.Err())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// The reply may have been delivered while we were giving up.
	select {
	case resp := <-result:
		return resp, nil
	default:
	}
	if c.result == result {
		c.pending = false
		c.result = nil
	}
	return nil, cause
}

// Cancel frees the pending slot without waiting, for a command that never
// made it onto the link.
func (c *Correlator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	c.result = nil
}

// Deliver hands a decoded reply to the waiting command. It reports whether
// the reply was claimed; replies with an unexpected sequence number, or that
// arrive when nothing is pending, are logged and dropped.
func (c *Correlator) Deliver(resp *ikawapb.Response) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending {
		c.log.Debug("[ikawa] dropping unclaimed response", "seq", resp.Seq)
		return false
	}
	if resp.Seq != c.next {
		c.log.Warn("[ikawa] dropping response",
			"error", ErrSequenceMismatch, "seq", resp.Seq, "expected", c.next)
		return false
	}

	c.next++
	if c.next == 0 {
		c.next = 1
	}
	c.pending = false
	c.result <- resp
	c.result = nil
	return true
}
