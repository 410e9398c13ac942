package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of the roaster link.
type State int

const (
	StateDisconnected State = iota
	StateScanning
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ManagerOptions configures the connection lifecycle.
type ManagerOptions struct {
	ScanTimeout          time.Duration // how long to look for a roaster (default 5s)
	ConnectTimeout       time.Duration // bound on connect retries (default 10s)
	ConnectRetryInterval time.Duration // delay between connect attempts (default 100ms)
	Reconnect            bool          // reconnect automatically after a link drop

	// OnStateChange, if set, is called after every state transition. It must
	// not block.
	OnStateChange func(State)
	Logger        *slog.Logger
}

// DefaultManagerOptions returns sensible defaults.
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		ScanTimeout:          5 * time.Second,
		ConnectTimeout:       10 * time.Second,
		ConnectRetryInterval: 100 * time.Millisecond,
		Reconnect:            true,
	}
}

// Manager owns the scan, connect, subscribe lifecycle of a single roaster
// link and reconnects in the background when the link drops.
type Manager struct {
	adapter  Adapter
	onNotify func([]byte)
	opts     ManagerOptions
	log      *slog.Logger

	mu               sync.Mutex
	state            State
	device           Device
	conn             Connection
	writeChar        Characteristic
	reconnectEnabled bool
	ctx              context.Context // session lifetime, cancelled by Close
	cancel           context.CancelFunc

	wg sync.WaitGroup
}

// NewManager creates a Manager. onNotify receives every notification from the
// roaster's notify characteristic, on whatever goroutine the adapter uses.
func NewManager(adapter Adapter, onNotify func([]byte), opts ManagerOptions) *Manager {
	defaults := DefaultManagerOptions()
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = defaults.ScanTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaults.ConnectTimeout
	}
	if opts.ConnectRetryInterval <= 0 {
		opts.ConnectRetryInterval = defaults.ConnectRetryInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if onNotify == nil {
		onNotify = func([]byte) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return &Manager{
		adapter:  adapter,
		onNotify: onNotify,
		opts:     opts,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// State returns the current link state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Device returns the roaster found by the last Open.
func (m *Manager) Device() Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device
}

// Link returns the write characteristic of the active link. It fails fast
// with ErrNotConnected while the link is down or being re-established.
func (m *Manager) Link() (Characteristic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected || m.writeChar == nil {
		return nil, fmt.Errorf("%w (%s)", ErrNotConnected, m.state)
	}
	return m.writeChar, nil
}

// SetReconnect enables or disables automatic reconnection for subsequent
// link drops.
func (m *Manager) SetReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectEnabled = enabled
}

// Open scans for a roaster advertising ServiceUUID, connects to it and
// subscribes to its notifications.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("ble: open: link is %s", state)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.reconnectEnabled = m.opts.Reconnect
	m.mu.Unlock()

	if err := m.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}

	m.setState(StateScanning)
	m.log.Info("[BLE] scanning", "service", ServiceUUID, "timeout", m.opts.ScanTimeout)

	scanCtx, cancel := context.WithTimeout(ctx, m.opts.ScanTimeout)
	device, err := m.adapter.Find(scanCtx, ServiceUUID)
	cancel()
	if err != nil {
		m.setState(StateDisconnected)
		if errors.Is(err, ErrDiscoveryFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
	}
	m.log.Info("[BLE] found roaster", "name", device.Name, "mac", device.MAC, "rssi", device.RSSI)

	m.mu.Lock()
	m.device = device
	m.mu.Unlock()

	if err := m.connect(ctx); err != nil {
		m.setState(StateDisconnected)
		return err
	}
	return nil
}

// Close disables reconnection, drops the link and waits for any background
// reconnect to finish.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.reconnectEnabled = false
	m.cancel()
	conn := m.conn
	m.conn = nil
	m.writeChar = nil
	prev := m.state
	m.state = StateDisconnected
	m.mu.Unlock()

	if prev != StateDisconnected {
		m.notifyState(StateDisconnected)
	}

	var err error
	if conn != nil {
		if derr := conn.Disconnect(); derr != nil {
			err = fmt.Errorf("ble: disconnect: %w", derr)
		}
	}
	m.wg.Wait()
	return err
}

// connect retries the connect primitive every ConnectRetryInterval until it
// succeeds or ConnectTimeout elapses.
func (m *Manager) connect(ctx context.Context) error {
	m.mu.Lock()
	session := m.ctx
	device := m.device
	if session.Err() != nil {
		m.mu.Unlock()
		return ErrClosed
	}
	m.state = StateConnecting
	m.mu.Unlock()
	m.notifyState(StateConnecting)

	ctx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()
	stop := context.AfterFunc(session, cancel)
	defer stop()

	for attempt := 1; ; attempt++ {
		err := m.attach(ctx, device)
		if err == nil {
			m.log.Info("[BLE] connected", "mac", device.MAC, "attempts", attempt)
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		m.log.Debug("[BLE] connect attempt failed", "mac", device.MAC, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			if session.Err() != nil {
				return ErrClosed
			}
			return fmt.Errorf("%w: %s after %d attempts: %w", ErrConnectFailed, device.MAC, attempt, err)
		case <-time.After(m.opts.ConnectRetryInterval):
		}
	}
}

// attach makes one connection attempt and, on success, discovers the roaster
// characteristics, subscribes to notifications and publishes the link. The
// disconnect callback is registered first; a drop before the link is
// published fails the attempt so the connect loop tries again.
func (m *Manager) attach(ctx context.Context, device Device) error {
	conn, err := m.adapter.Connect(ctx, device.MAC)
	if err != nil {
		return err
	}

	// published and dropped are guarded by m.mu.
	var published, dropped bool
	conn.OnDisconnect(func() {
		m.mu.Lock()
		if !published {
			dropped = true
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		m.handleDisconnect(conn)
	})

	writeChar, err := conn.DiscoverCharacteristic(ServiceUUID, WriteCharUUID)
	if err != nil {
		_ = conn.Disconnect()
		return fmt.Errorf("ble: discover write characteristic: %w", err)
	}
	notifyChar, err := conn.DiscoverCharacteristic(ServiceUUID, NotifyCharUUID)
	if err != nil {
		_ = conn.Disconnect()
		return fmt.Errorf("ble: discover notify characteristic: %w", err)
	}
	if err := notifyChar.Subscribe(m.onNotify); err != nil {
		_ = conn.Disconnect()
		return fmt.Errorf("ble: subscribe to notifications: %w", err)
	}

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		_ = conn.Disconnect()
		return ErrClosed
	}
	if dropped {
		m.mu.Unlock()
		_ = conn.Disconnect()
		return errDroppedInConnect
	}
	published = true
	m.conn = conn
	m.writeChar = writeChar
	m.state = StateConnected
	m.mu.Unlock()

	m.notifyState(StateConnected)
	return nil
}

// handleDisconnect runs on the adapter's disconnect callback. It never
// blocks: reconnection is started on its own goroutine.
func (m *Manager) handleDisconnect(conn Connection) {
	m.mu.Lock()
	if m.conn != conn || m.state != StateConnected {
		// Stale link, or the drop is already being handled.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.writeChar = nil
	mac := m.device.MAC

	if !m.reconnectEnabled {
		m.state = StateDisconnected
		m.mu.Unlock()
		m.log.Info("[BLE] disconnected", "mac", mac)
		m.notifyState(StateDisconnected)
		return
	}

	m.state = StateReconnecting
	m.wg.Add(1)
	m.mu.Unlock()

	m.log.Warn("[BLE] disconnected, reconnecting...", "mac", mac)
	m.notifyState(StateReconnecting)
	go m.reconnect()
}

func (m *Manager) reconnect() {
	defer m.wg.Done()

	if err := m.connect(context.Background()); err != nil {
		if errors.Is(err, ErrClosed) {
			return
		}
		m.log.Error("[BLE] reconnect failed", "error", err)
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		m.notifyState(StateDisconnected)
		return
	}
	m.log.Info("[BLE] reconnected", "mac", m.Device().MAC)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.notifyState(s)
}

func (m *Manager) notifyState(s State) {
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(s)
	}
}
