// Package roastlog samples the roaster's sensors and records them as CSV.
package roastlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/chaz8081/ikawa-ble/internal/ble"
	"github.com/chaz8081/ikawa-ble/internal/ikawa"
	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

// Header names the CSV columns.
var Header = []string{
	"real time",
	"roast time",
	"roaster state",
	"temperature °C",
	"setpoint target temperature °C",
	"heater",
	"setpoint fan power %",
	"fan measured",
}

// Sample is one status reading in display units.
type Sample struct {
	RealTime    time.Time `json:"real_time"`
	RoastTime   float64   `json:"roast_time"` // seconds
	State       string    `json:"state"`
	Temp        float64   `json:"temp"`     // °C, below the beans
	Setpoint    float64   `json:"setpoint"` // °C
	Heater      uint32    `json:"heater"`
	FanSetpoint float64   `json:"fan_setpoint"` // percent
	FanMeasured uint32    `json:"fan_measured"`
}

// NewSample converts a raw status reading taken at now.
func NewSample(now time.Time, s *ikawapb.RespMachStatusGetAll) Sample {
	return Sample{
		RealTime:    now.UTC().Truncate(time.Second),
		RoastTime:   float64(s.Time) / 10,
		State:       s.State.String(),
		Temp:        float64(s.TempBelow) / 10,
		Setpoint:    float64(s.Setpoint) / 10,
		Heater:      s.Heater,
		FanSetpoint: float64(s.Fan) * 100 / 255,
		FanMeasured: s.FanMeasured,
	}
}

// Row formats the sample as CSV fields in Header order.
func (s Sample) Row() []string {
	return []string{
		s.RealTime.Format(time.RFC3339),
		strconv.FormatFloat(s.RoastTime, 'f', 1, 64),
		s.State,
		strconv.FormatFloat(s.Temp, 'f', 1, 64),
		strconv.FormatFloat(s.Setpoint, 'f', 1, 64),
		strconv.FormatUint(uint64(s.Heater), 10),
		strconv.FormatFloat(s.FanSetpoint, 'f', 1, 64),
		strconv.FormatUint(uint64(s.FanMeasured), 10),
	}
}

// Writer appends samples to a CSV stream, flushing after every row so the
// log can be tailed live.
type Writer struct {
	w          *csv.Writer
	needHeader bool
}

// NewWriter returns a Writer on w. The header row is written before the
// first sample when header is true.
func NewWriter(w io.Writer, header bool) *Writer {
	return &Writer{w: csv.NewWriter(w), needHeader: header}
}

// Write records one sample.
func (w *Writer) Write(s Sample) error {
	if w.needHeader {
		if err := w.w.Write(Header); err != nil {
			return fmt.Errorf("roastlog: write header: %w", err)
		}
		w.needHeader = false
	}
	if err := w.w.Write(s.Row()); err != nil {
		return fmt.Errorf("roastlog: write row: %w", err)
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("roastlog: flush: %w", err)
	}
	return nil
}

// StatusSource is polled for sensor readings. ikawa.Client implements it.
type StatusSource interface {
	Status(ctx context.Context, retryTimeout time.Duration) (*ikawapb.RespMachStatusGetAll, error)
	State() ble.State
}

// PollOptions configures Poll.
type PollOptions struct {
	Interval     time.Duration // pause after each poll
	RetryTimeout time.Duration // per-poll reply wait
	Logger       *slog.Logger
	Now          func() time.Time // defaults to time.Now
}

// Poll reads the roaster status until ctx ends, passing each sample to sink.
// Lost replies and a link that is still reconnecting skip a sample. Once the
// link is down with no reconnect under way, Poll fails with
// ble.ErrConnectFailed. Any other error, including one returned by sink,
// stops the loop.
func Poll(ctx context.Context, src StatusSource, opts PollOptions, sink func(Sample) error) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	for {
		status, err := src.Status(ctx, opts.RetryTimeout)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ikawa.ErrResponseTimeout), errors.Is(err, ble.ErrLinkUnavailable):
			if state := src.State(); state == ble.StateDisconnected {
				return fmt.Errorf("roastlog: %w: link is %s: %w", ble.ErrConnectFailed, state, err)
			}
			if errors.Is(err, ble.ErrLinkUnavailable) {
				opts.Logger.Warn("[log] roaster link down, waiting", "error", err)
			} else {
				opts.Logger.Debug("[log] status reply lost")
			}
		case err != nil:
			return err
		default:
			if err := sink(NewSample(opts.Now(), status)); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.Interval):
		}
	}
}
