// Package bletest provides an in-memory Ikawa roaster for tests. A Roaster
// implements ble.Adapter; commands written to it are decoded and answered
// over its notify characteristic the way the firmware does.
package bletest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/chaz8081/ikawa-ble/internal/ble"
	"github.com/chaz8081/ikawa-ble/internal/ble/protocol"
	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

var errConnectRefused = errors.New("bletest: connect refused")

// Setting is a simulated roaster setting.
type Setting struct {
	Name  string
	Type  ikawapb.SettingType
	Value uint32
}

// Roaster simulates one roaster. Exported fields configure it and must be set
// before the client opens; the methods are safe to call at any time.
type Roaster struct {
	Device   ble.Device
	Info     ikawapb.RespBootloaderGetVersion
	Type     ikawapb.RespMachPropGetType
	ID       string
	Settings map[uint32]Setting

	// NotifyMTU is the size of each notification chunk (default 20).
	NotifyMTU int

	mu            sync.Mutex
	status        ikawapb.RespMachStatusGetAll
	profile       *ikawapb.RoastProfile
	rejectProfile bool
	failConnects  int
	mute          int
	seqSkew       uint32
	corrupt       int
	connects      int
	commands      []*ikawapb.Cmd
	conn          *connection
}

// NewRoaster returns a roaster with realistic identity and two settings.
func NewRoaster() *Roaster {
	return &Roaster{
		Device: ble.Device{Name: "IKAWA", MAC: "C0:FF:EE:00:00:01", RSSI: -60},
		Info:   ikawapb.RespBootloaderGetVersion{Version: 23, Revision: "4c1d6ab"},
		Type:   ikawapb.RespMachPropGetType{Type: ikawapb.MachTypeHome, Variant: ikawapb.VariantV2},
		ID:     "ikawa-0001",
		Settings: map[uint32]Setting{
			1: {Name: "FAN_MIN", Type: ikawapb.SettingU32, Value: 60},
			4: {Name: "TEMP_OFFSET", Type: ikawapb.SettingFloat, Value: 0x3FC00000}, // 1.5
		},
		NotifyMTU: protocol.DefaultMTU,
		profile:   &ikawapb.RoastProfile{Schema: 1, Name: "factory"},
	}
}

// SetStatus sets the sample returned for MACH_STATUS_GET_ALL.
func (r *Roaster) SetStatus(s ikawapb.RespMachStatusGetAll) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// LoadedProfile returns the profile currently stored on the roaster.
func (r *Roaster) LoadedProfile() *ikawapb.RoastProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile
}

// RejectProfile makes PROFILE_SET answer with an error status.
func (r *Roaster) RejectProfile(reject bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejectProfile = reject
}

// FailConnects makes the next n connection attempts fail.
func (r *Roaster) FailConnects(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failConnects = n
}

// Mute swallows the replies to the next n commands.
func (r *Roaster) Mute(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mute = n
}

// SkewSequence adds skew to the sequence number of every reply.
func (r *Roaster) SkewSequence(skew uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqSkew = skew
}

// Corrupt flips a checksum bit in the next n replies.
func (r *Roaster) Corrupt(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corrupt = n
}

// Commands returns every command received so far, with its sequence number.
func (r *Roaster) Commands() []*ikawapb.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.commands)
}

// Connects returns the number of connection attempts.
func (r *Roaster) Connects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connects
}

// Drop simulates the roaster going out of range: the active connection is
// lost and the client's disconnect handler runs.
func (r *Roaster) Drop() {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	if conn != nil {
		conn.drop()
	}
}

// Notify pushes raw bytes to the client as one notification.
func (r *Roaster) Notify(data []byte) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn != nil {
		conn.notify.deliver(data)
	}
}

// Enable implements ble.Adapter.
func (r *Roaster) Enable() error { return nil }

// Scan implements ble.Adapter.
func (r *Roaster) Scan(ctx context.Context, serviceUUID string) ([]ble.Device, error) {
	if serviceUUID != ble.ServiceUUID {
		return nil, nil
	}
	return []ble.Device{r.Device}, nil
}

// Find implements ble.Adapter.
func (r *Roaster) Find(ctx context.Context, serviceUUID string) (ble.Device, error) {
	if serviceUUID != ble.ServiceUUID {
		return ble.Device{}, ble.ErrDiscoveryFailed
	}
	return r.Device, nil
}

// Connect implements ble.Adapter.
func (r *Roaster) Connect(ctx context.Context, mac string) (ble.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
	if mac != r.Device.MAC {
		return nil, fmt.Errorf("bletest: unknown device %s", mac)
	}
	if r.failConnects > 0 {
		r.failConnects--
		return nil, errConnectRefused
	}
	conn := &connection{roaster: r}
	conn.write = &writeCharacteristic{conn: conn, frames: protocol.NewReassembler(nil)}
	conn.notify = &notifyCharacteristic{}
	r.conn = conn
	return conn, nil
}

// handle decodes one command and builds the roaster's reply frame. It
// returns nil when the reply is muted.
func (r *Roaster) handle(payload []byte) []byte {
	cmd, err := ikawapb.UnmarshalCmd(payload)
	if err != nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)

	resp := r.respond(cmd)
	resp.Seq = cmd.Seq + r.seqSkew

	if r.mute > 0 {
		r.mute--
		return nil
	}
	frame := protocol.EncodeFrame(resp.Marshal())
	if r.corrupt > 0 {
		r.corrupt--
		frame[len(frame)-2] ^= 0x01
	}
	return frame
}

// respond runs cmd against the simulated state. Callers hold r.mu.
func (r *Roaster) respond(cmd *ikawapb.Cmd) *ikawapb.Response {
	resp := &ikawapb.Response{Resp: ikawapb.RespOK}
	switch cmd.CmdType {
	case ikawapb.BootloaderGetVersion:
		info := r.Info
		resp.BootloaderGetVersion = &info
	case ikawapb.MachPropGetType:
		typ := r.Type
		resp.MachPropType = &typ
	case ikawapb.MachPropGetID:
		resp.MachID = &ikawapb.RespMachPropGetID{ID: r.ID}
	case ikawapb.MachStatusGetError:
		resp.MachStatusGetError = &ikawapb.RespMachStatusGetError{}
	case ikawapb.MachStatusGetAll:
		status := r.status
		resp.MachStatusGetAll = &status
	case ikawapb.ProfileGet:
		resp.ProfileGet = &ikawapb.RespProfileGet{Profile: r.profile}
	case ikawapb.ProfileSet:
		if r.rejectProfile || cmd.ProfileSet == nil || cmd.ProfileSet.Profile == nil {
			resp.Resp = ikawapb.RespError
			break
		}
		r.profile = cmd.ProfileSet.Profile
	case ikawapb.SettingGetList:
		var offset uint32
		if cmd.SettingGetList != nil {
			offset = cmd.SettingGetList.Offset
		}
		list := &ikawapb.RespSettingGetList{}
		for n := range r.Settings {
			if n >= offset {
				list.Number = append(list.Number, n)
			}
		}
		slices.Sort(list.Number)
		resp.SettingGetList = list
	case ikawapb.SettingGetInfo:
		if cmd.SettingGetInfo == nil {
			resp.Resp = ikawapb.RespError
			break
		}
		n := cmd.SettingGetInfo.Number
		s, ok := r.Settings[n]
		if !ok {
			resp.Resp = ikawapb.RespError
			break
		}
		resp.SettingGetInfo = &ikawapb.RespSettingGetInfo{Number: n, Name: s.Name, Type: s.Type}
	case ikawapb.SettingGet:
		if cmd.SettingGet == nil {
			resp.Resp = ikawapb.RespError
			break
		}
		n := cmd.SettingGet.Number
		s, ok := r.Settings[n]
		if !ok {
			resp.Resp = ikawapb.RespError
			break
		}
		resp.SettingGet = &ikawapb.RespSettingGet{Number: n, ValU32: s.Value}
	case ikawapb.SettingSet:
		if cmd.SettingSet == nil {
			resp.Resp = ikawapb.RespError
			break
		}
		s, ok := r.Settings[cmd.SettingSet.Number]
		if !ok {
			resp.Resp = ikawapb.RespError
			break
		}
		s.Value = cmd.SettingSet.ValU32
		r.Settings[cmd.SettingSet.Number] = s
	default:
		resp.Resp = ikawapb.RespError
	}
	return resp
}

type connection struct {
	roaster *Roaster
	write   *writeCharacteristic
	notify  *notifyCharacteristic

	mu           sync.Mutex
	closed       bool
	onDisconnect func()
}

func (c *connection) DiscoverCharacteristic(serviceUUID, charUUID string) (ble.Characteristic, error) {
	if serviceUUID != ble.ServiceUUID {
		return nil, fmt.Errorf("bletest: service %s not found", serviceUUID)
	}
	switch charUUID {
	case ble.WriteCharUUID:
		return c.write, nil
	case ble.NotifyCharUUID:
		return c.notify, nil
	}
	return nil, fmt.Errorf("bletest: characteristic %s not found", charUUID)
}

func (c *connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *connection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = cb
}

func (c *connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *connection) drop() {
	c.mu.Lock()
	c.closed = true
	cb := c.onDisconnect
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type writeCharacteristic struct {
	conn   *connection
	frames *protocol.Reassembler
}

var errLinkClosed = errors.New("bletest: link closed")

func (w *writeCharacteristic) Write(data []byte) error {
	if w.conn.isClosed() {
		return errLinkClosed
	}
	r := w.conn.roaster
	for _, payload := range w.frames.Feed(data) {
		if reply := r.handle(payload); reply != nil {
			mtu := r.NotifyMTU
			if mtu <= 0 {
				mtu = protocol.DefaultMTU
			}
			chunks := protocol.ChunkFrame(reply, mtu)
			// Notifications arrive asynchronously, in order.
			go w.conn.notify.deliver(chunks...)
		}
	}
	return nil
}

func (w *writeCharacteristic) Subscribe(func([]byte)) error {
	return errors.New("bletest: write characteristic does not notify")
}

type notifyCharacteristic struct {
	mu sync.Mutex
	cb func([]byte)
}

func (n *notifyCharacteristic) Write([]byte) error {
	return errors.New("bletest: notify characteristic is not writable")
}

func (n *notifyCharacteristic) Subscribe(cb func([]byte)) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cb = cb
	return nil
}

// deliver runs the subscriber once per chunk under the lock so chunks from
// concurrent replies never interleave.
func (n *notifyCharacteristic) deliver(chunks ...[]byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cb == nil {
		return
	}
	for _, chunk := range chunks {
		n.cb(chunk)
	}
}
