package roastlog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chaz8081/ikawa-ble/internal/ble"
	"github.com/chaz8081/ikawa-ble/internal/ble/bletest"
	"github.com/chaz8081/ikawa-ble/internal/ikawa"
	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSampleRow(t *testing.T) {
	s := NewSample(testTime, &ikawapb.RespMachStatusGetAll{
		Time:        1234,
		TempBelow:   1875,
		Setpoint:    1900,
		Heater:      87,
		Fan:         204,
		FanMeasured: 11234,
		State:       ikawapb.StateRoasting,
	})
	want := []string{
		"2026-03-14T09:26:53Z", "123.4", "ROASTING", "187.5", "190.0", "87", "80.0", "11234",
	}
	if got := s.Row(); !slices.Equal(got, want) {
		t.Errorf("Row() = %q, want %q", got, want)
	}
}

func TestWriterHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    bool
		wantLines int
	}{
		{"with header", true, 3},
		{"no header", false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, tt.header)
			s := NewSample(testTime, &ikawapb.RespMachStatusGetAll{})
			for i := 0; i < 2; i++ {
				if err := w.Write(s); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}

			records, err := csv.NewReader(&buf).ReadAll()
			if err != nil {
				t.Fatalf("output is not CSV: %v", err)
			}
			if len(records) != tt.wantLines {
				t.Fatalf("got %d records, want %d", len(records), tt.wantLines)
			}
			if tt.header && !slices.Equal(records[0], Header) {
				t.Errorf("header = %q, want %q", records[0], Header)
			}
			if got := records[len(records)-1][2]; got != "IDLE" {
				t.Errorf("state column = %q, want IDLE", got)
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterReportsFlushError(t *testing.T) {
	w := NewWriter(failingWriter{}, false)
	if err := w.Write(NewSample(testTime, &ikawapb.RespMachStatusGetAll{})); err == nil {
		t.Error("Write() should surface the flush error")
	}
}

// scriptedSource replays a fixed sequence of status results.
type scriptedSource struct {
	mu      sync.Mutex
	results []error
	calls   int
	down    bool // report the link as disconnected for good
}

func (s *scriptedSource) State() ble.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return ble.StateDisconnected
	}
	return ble.StateConnected
}

func (s *scriptedSource) Status(ctx context.Context, retryTimeout time.Duration) (*ikawapb.RespMachStatusGetAll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return nil, s.results[i]
	}
	return &ikawapb.RespMachStatusGetAll{Time: uint32(i * 10)}, nil
}

func TestPollSkipsLostReplies(t *testing.T) {
	src := &scriptedSource{results: []error{
		nil,
		fmt.Errorf("ikawa: MACH_STATUS_GET_ALL: %w", ikawa.ErrResponseTimeout),
		fmt.Errorf("ikawa: send: %w", ble.ErrLinkUnavailable),
		nil,
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []float64
	err := Poll(ctx, src, PollOptions{Logger: testLogger()}, func(s Sample) error {
		got = append(got, s.RoastTime)
		if len(got) == 3 {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if want := []float64{0, 3, 4}; !slices.Equal(got, want) {
		t.Errorf("roast times = %v, want %v", got, want)
	}
}

func TestPollFailsWhenLinkIsGone(t *testing.T) {
	src := &scriptedSource{
		results: []error{fmt.Errorf("ikawa: send: %w", ble.ErrLinkUnavailable)},
		down:    true,
	}
	err := Poll(context.Background(), src, PollOptions{Logger: testLogger()}, func(Sample) error { return nil })
	if !errors.Is(err, ble.ErrConnectFailed) {
		t.Errorf("Poll() error = %v, want ErrConnectFailed", err)
	}
	if !errors.Is(err, ble.ErrLinkUnavailable) {
		t.Errorf("Poll() error = %v, should wrap the send error", err)
	}
}

func TestPollStopsAfterReconnectGivesUp(t *testing.T) {
	r := bletest.NewRoaster()
	opts := ikawa.DefaultClientOptions()
	opts.RetryTimeout = 100 * time.Millisecond
	opts.Manager.ConnectRetryInterval = time.Millisecond
	opts.Manager.ConnectTimeout = 50 * time.Millisecond
	opts.Writer.RetryInterval = time.Millisecond
	opts.Logger = testLogger()
	client := ikawa.NewClient(r, opts)
	if err := client.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer client.Close()

	r.FailConnects(1 << 30)
	r.Drop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	err := Poll(ctx, client, PollOptions{Interval: time.Millisecond, RetryTimeout: 50 * time.Millisecond, Logger: testLogger()},
		func(Sample) error { return nil })
	if !errors.Is(err, ble.ErrConnectFailed) {
		t.Fatalf("Poll() error = %v, want ErrConnectFailed", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Poll() kept going for %v after the link was lost", elapsed)
	}
	if client.State() != ble.StateDisconnected {
		t.Errorf("State() = %s, want disconnected", client.State())
	}
}

func TestPollStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	src := &scriptedSource{results: []error{boom}}
	err := Poll(context.Background(), src, PollOptions{Logger: testLogger()}, func(Sample) error { return nil })
	if !errors.Is(err, boom) {
		t.Errorf("Poll() error = %v, want boom", err)
	}
}

func TestPollStopsOnSinkError(t *testing.T) {
	src := &scriptedSource{}
	sinkErr := errors.New("sink closed")
	err := Poll(context.Background(), src, PollOptions{Logger: testLogger()}, func(Sample) error { return sinkErr })
	if !errors.Is(err, sinkErr) {
		t.Errorf("Poll() error = %v, want sink error", err)
	}
}

func TestPollUsesClock(t *testing.T) {
	src := &scriptedSource{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stamp time.Time
	opts := PollOptions{Logger: testLogger(), Now: func() time.Time { return testTime }}
	Poll(ctx, src, opts, func(s Sample) error {
		stamp = s.RealTime
		cancel()
		return nil
	})
	if !strings.HasPrefix(stamp.Format(time.RFC3339), "2026-03-14T09:26:53") {
		t.Errorf("RealTime = %v, want the injected clock", stamp)
	}
}
