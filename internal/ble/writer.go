package ble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/ikawa-ble/internal/ble/protocol"
)

// LinkSource yields the write characteristic of the active link.
// Manager implements it.
type LinkSource interface {
	Link() (Characteristic, error)
}

// WriterOptions configures chunked frame writes.
type WriterOptions struct {
	MTU           int           // max bytes per characteristic write (default 20)
	RetryInterval time.Duration // delay between failed write attempts (default 100ms)
	Logger        *slog.Logger
}

// DefaultWriterOptions returns sensible defaults.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		MTU:           protocol.DefaultMTU,
		RetryInterval: 100 * time.Millisecond,
	}
}

// Writer sends encoded frames over the active link in MTU-sized chunks.
type Writer struct {
	links LinkSource
	opts  WriterOptions
	log   *slog.Logger
}

// NewWriter creates a Writer that looks up the link through links on every
// attempt, so a reconnect between chunks is picked up.
func NewWriter(links LinkSource, opts WriterOptions) *Writer {
	defaults := DefaultWriterOptions()
	if opts.MTU <= 0 {
		opts.MTU = defaults.MTU
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaults.RetryInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Writer{links: links, opts: opts, log: opts.Logger}
}

// Send writes frame chunk by chunk, in order. A chunk whose write keeps
// failing for longer than retryTimeout aborts the whole send with
// ErrLinkUnavailable, even if earlier chunks went out.
func (w *Writer) Send(ctx context.Context, frame []byte, retryTimeout time.Duration) error {
	chunks := protocol.ChunkFrame(frame, w.opts.MTU)
	for i, chunk := range chunks {
		if err := w.writeChunk(ctx, chunk, retryTimeout); err != nil {
			return fmt.Errorf("ble: write chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

func (w *Writer) writeChunk(ctx context.Context, chunk []byte, retryTimeout time.Duration) error {
	start := time.Now()
	for attempt := 1; ; attempt++ {
		err := w.tryWrite(ctx, chunk, retryTimeout-time.Since(start))
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("ble: write: %w", ctx.Err())
		}
		if time.Since(start) >= retryTimeout {
			return fmt.Errorf("%w after %d attempts: %w", ErrLinkUnavailable, attempt, err)
		}
		w.log.Debug("[BLE] write failed, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("ble: write: %w", ctx.Err())
		case <-time.After(w.opts.RetryInterval):
		}
	}
}

// tryWrite makes one write attempt, giving up on it after budget. A write
// that is abandoned keeps running on its own goroutine until the stack
// returns.
func (w *Writer) tryWrite(ctx context.Context, chunk []byte, budget time.Duration) error {
	char, err := w.links.Link()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- char.Write(chunk) }()

	timer := time.NewTimer(max(budget, 0))
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return errWriteStalled
	case <-ctx.Done():
		return ctx.Err()
	}
}
