package ikawa

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/ikawa-ble/internal/ble"
	"github.com/chaz8081/ikawa-ble/internal/ble/protocol"
	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

// ClientOptions configures the roaster client.
type ClientOptions struct {
	Manager ble.ManagerOptions
	Writer  ble.WriterOptions

	// RetryTimeout bounds both the retries of each chunk write and the wait
	// for the reply (default 10s).
	RetryTimeout time.Duration
	Logger       *slog.Logger
}

// DefaultClientOptions returns sensible defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Manager:      ble.DefaultManagerOptions(),
		Writer:       ble.DefaultWriterOptions(),
		RetryTimeout: 10 * time.Second,
	}
}

// Client talks to one Ikawa roaster. Commands are serialized: SendCommand
// holds the client until its reply arrives or times out.
type Client struct {
	manager     *ble.Manager
	writer      *ble.Writer
	reassembler *protocol.Reassembler
	correlator  *Correlator
	opts        ClientOptions
	log         *slog.Logger

	sendMu sync.Mutex
}

// NewClient builds a client that reaches the roaster through adapter.
func NewClient(adapter ble.Adapter, opts ClientOptions) *Client {
	if opts.RetryTimeout <= 0 {
		opts.RetryTimeout = DefaultClientOptions().RetryTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Manager.Logger == nil {
		opts.Manager.Logger = opts.Logger
	}
	if opts.Writer.Logger == nil {
		opts.Writer.Logger = opts.Logger
	}

	c := &Client{
		reassembler: protocol.NewReassembler(opts.Logger),
		correlator:  NewCorrelator(opts.Logger),
		opts:        opts,
		log:         opts.Logger,
	}

	// A half-received frame from a dropped link must not swallow the first
	// delimiter of the next one.
	onState := opts.Manager.OnStateChange
	opts.Manager.OnStateChange = func(s ble.State) {
		if s == ble.StateConnecting {
			c.reassembler.Reset()
		}
		if onState != nil {
			onState(s)
		}
	}

	c.manager = ble.NewManager(adapter, c.handleNotification, opts.Manager)
	c.writer = ble.NewWriter(c.manager, opts.Writer)
	return c
}

// Open finds the roaster and connects to it.
func (c *Client) Open(ctx context.Context) error {
	return c.manager.Open(ctx)
}

// Close disables reconnection and drops the link.
func (c *Client) Close() error {
	return c.manager.Close()
}

// State returns the link state.
func (c *Client) State() ble.State {
	return c.manager.State()
}

// Device returns the roaster the client is connected to.
func (c *Client) Device() ble.Device {
	return c.manager.Device()
}

// SendCommand sends cmd and waits for the correlated reply, bounded by the
// configured retry timeout. cmd.Seq must be zero; the client assigns it.
func (c *Client) SendCommand(ctx context.Context, cmd *ikawapb.Cmd) (*ikawapb.Response, error) {
	return c.SendCommandTimeout(ctx, cmd, c.opts.RetryTimeout)
}

// SendCommandTimeout is SendCommand with an explicit retry timeout.
func (c *Client) SendCommandTimeout(ctx context.Context, cmd *ikawapb.Cmd, retryTimeout time.Duration) (*ikawapb.Response, error) {
	if cmd.Seq != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrSequenceAssigned, cmd.Seq)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	seq, err := c.correlator.Submit()
	if err != nil {
		return nil, err
	}

	out := *cmd
	out.Seq = seq
	frame := protocol.EncodeFrame(out.Marshal())

	c.log.Debug("[ikawa] sending command", "cmd", cmd.CmdType, "seq", seq, "bytes", len(frame))
	if err := c.writer.Send(ctx, frame, retryTimeout); err != nil {
		c.correlator.Cancel()
		return nil, fmt.Errorf("ikawa: send %s: %w", cmd.CmdType, err)
	}

	resp, err := c.correlator.Await(ctx, retryTimeout)
	if err != nil {
		return nil, fmt.Errorf("ikawa: %s: %w", cmd.CmdType, err)
	}
	return resp, nil
}

// handleNotification feeds raw notification bytes through the reassembler
// and delivers every decoded reply.
func (c *Client) handleNotification(data []byte) {
	for _, payload := range c.reassembler.Feed(data) {
		resp, err := ikawapb.UnmarshalResponse(payload)
		if err != nil {
			c.log.Warn("[ikawa] dropping undecodable response", "error", err)
			continue
		}
		c.correlator.Deliver(resp)
	}
}
