package protocol

import (
	"bytes"
	"encoding/hex"
	"log/slog"
	"sync"
)

// minFrameLen is the shortest byte span that can hold a frame: two
// delimiters and at least one byte between them.
const minFrameLen = 3

// Reassembler accumulates notification chunks and cuts complete frames out
// of the stream. It is safe for concurrent use; notification callbacks may
// run on any goroutine.
type Reassembler struct {
	log *slog.Logger

	mu  sync.Mutex
	buf []byte
}

// NewReassembler returns an empty Reassembler. A nil logger uses slog.Default.
func NewReassembler(logger *slog.Logger) *Reassembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reassembler{log: logger}
}

// Feed appends chunk to the receive buffer and returns the payloads of every
// frame completed by it, in arrival order. Frames that fail to decode are
// logged and dropped; the buffer resynchronizes on the next delimiter.
func (r *Reassembler) Feed(chunk []byte) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(r.buf, chunk...)

	var payloads [][]byte
	for {
		start := bytes.IndexByte(r.buf, FrameByte)
		if start < 0 {
			// Nothing here can start a frame.
			r.buf = r.buf[:0]
			return payloads
		}
		if start > 0 {
			r.log.Debug("[BLE] discarding bytes before frame start", "count", start)
			r.buf = r.buf[start:]
		}

		end := bytes.IndexByte(r.buf[1:], FrameByte)
		if end < 0 {
			return payloads
		}
		end += 2 // past the closing delimiter, relative to r.buf

		if end < minFrameLen {
			// A stale closing delimiter followed by the next opener: drop the
			// stale byte and keep the opener.
			r.buf = r.buf[1:]
			continue
		}

		candidate := make([]byte, end)
		copy(candidate, r.buf[:end])
		r.buf = r.buf[end:]

		payload, err := DecodeFrame(candidate)
		if err != nil {
			r.log.Warn("[BLE] dropping frame", "error", err, "frame", hex.EncodeToString(candidate))
			continue
		}
		payloads = append(payloads, payload)
	}
}

// Buffered returns the number of bytes waiting for a closing delimiter.
func (r *Reassembler) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Reset discards any partially received frame.
func (r *Reassembler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = r.buf[:0]
}
