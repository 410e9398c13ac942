package ble

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// staticLinks always returns the same characteristic or error.
type staticLinks struct {
	char Characteristic
	err  error
}

func (l staticLinks) Link() (Characteristic, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.char, nil
}

// flakyCharacteristic accepts okWrites writes and fails every one after.
type flakyCharacteristic struct {
	mu       sync.Mutex
	okWrites int
	writes   [][]byte
	attempts int
}

func (c *flakyCharacteristic) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	if len(c.writes) >= c.okWrites {
		return errMockWrite
	}
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *flakyCharacteristic) Subscribe(func([]byte)) error { return nil }

// stuckCharacteristic blocks every write until release is closed.
type stuckCharacteristic struct {
	release chan struct{}
}

func (c *stuckCharacteristic) Write([]byte) error {
	<-c.release
	return nil
}

func (c *stuckCharacteristic) Subscribe(func([]byte)) error { return nil }

func testWriterOpts() WriterOptions {
	opts := DefaultWriterOptions()
	opts.RetryInterval = time.Millisecond
	opts.Logger = testLogger()
	return opts
}

func TestWriterChunksFrameInOrder(t *testing.T) {
	char := &mockCharacteristic{}
	w := NewWriter(staticLinks{char: char}, testWriterOpts())

	frame := make([]byte, 45)
	for i := range frame {
		frame[i] = byte(i)
	}
	if err := w.Send(context.Background(), frame, time.Second); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	writes := char.Writes()
	if len(writes) != 3 {
		t.Fatalf("got %d writes, want 3", len(writes))
	}
	for i, want := range []int{20, 20, 5} {
		if len(writes[i]) != want {
			t.Errorf("write[%d] len = %d, want %d", i, len(writes[i]), want)
		}
	}
	if got := bytes.Join(writes, nil); !bytes.Equal(got, frame) {
		t.Errorf("written bytes = %x, want %x", got, frame)
	}
}

func TestWriterRetriesFailedChunk(t *testing.T) {
	char := &mockCharacteristic{failWrites: 2}
	w := NewWriter(staticLinks{char: char}, testWriterOpts())

	if err := w.Send(context.Background(), []byte{0x7E, 0x01, 0x7E}, time.Second); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if writes := char.Writes(); len(writes) != 1 {
		t.Errorf("got %d successful writes, want 1", len(writes))
	}
}

func TestWriterLinkUnavailable(t *testing.T) {
	char := &mockCharacteristic{writeErr: errMockWrite}
	opts := testWriterOpts()
	opts.RetryInterval = 5 * time.Millisecond
	w := NewWriter(staticLinks{char: char}, opts)

	start := time.Now()
	err := w.Send(context.Background(), []byte{0x7E, 0x01, 0x7E}, 30*time.Millisecond)
	if !errors.Is(err, ErrLinkUnavailable) {
		t.Fatalf("Send() error = %v, want ErrLinkUnavailable", err)
	}
	if !errors.Is(err, errMockWrite) {
		t.Errorf("Send() error = %v, should wrap the last write error", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Send() gave up after %v, before the retry timeout", elapsed)
	}
}

func TestWriterBoundsBlockedWrite(t *testing.T) {
	char := &stuckCharacteristic{release: make(chan struct{})}
	defer close(char.release)
	w := NewWriter(staticLinks{char: char}, testWriterOpts())

	done := make(chan error, 1)
	go func() { done <- w.Send(context.Background(), []byte{0x7E, 0x01, 0x7E}, 30*time.Millisecond) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrLinkUnavailable) {
			t.Errorf("Send() error = %v, want ErrLinkUnavailable", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send() did not give up on a write that never returns")
	}
}

func TestWriterAbortsRemainingChunks(t *testing.T) {
	char := &flakyCharacteristic{okWrites: 1}
	w := NewWriter(staticLinks{char: char}, testWriterOpts())

	frame := bytes.Repeat([]byte{0x01}, 50)
	err := w.Send(context.Background(), frame, 10*time.Millisecond)
	if !errors.Is(err, ErrLinkUnavailable) {
		t.Fatalf("Send() error = %v, want ErrLinkUnavailable", err)
	}
	char.mu.Lock()
	defer char.mu.Unlock()
	if len(char.writes) != 1 {
		t.Errorf("got %d successful writes, want 1", len(char.writes))
	}
}

func TestWriterFailsFastWithoutLink(t *testing.T) {
	w := NewWriter(staticLinks{err: ErrNotConnected}, testWriterOpts())

	start := time.Now()
	err := w.Send(context.Background(), []byte{0x7E, 0x01, 0x7E}, 0)
	if !errors.Is(err, ErrLinkUnavailable) || !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send() error = %v, want ErrLinkUnavailable wrapping ErrNotConnected", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Send() took %v without a link", elapsed)
	}
}

func TestWriterPicksUpReconnectedLink(t *testing.T) {
	adapter := newMockAdapter(testDevices())
	m := NewManager(adapter, nil, testManagerOpts(nil))
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer m.Close()

	adapter.latestConnection().SimulateDisconnect()
	w := NewWriter(m, testWriterOpts())
	if err := w.Send(context.Background(), []byte{0x7E, 0x02, 0x7E}, time.Second); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if writes := adapter.latestConnection().writeChar.Writes(); len(writes) != 1 {
		t.Errorf("got %d writes on the new link, want 1", len(writes))
	}
}

func TestWriterContextCancelled(t *testing.T) {
	char := &mockCharacteristic{writeErr: errMockWrite}
	w := NewWriter(staticLinks{char: char}, testWriterOpts())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Send(ctx, []byte{0x7E, 0x01, 0x7E}, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Send() error = %v, want context.Canceled", err)
	}
}
