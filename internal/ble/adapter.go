// Package ble provides the BLE link to an Ikawa home roaster: adapter
// abstraction, connection lifecycle with auto-reconnect, and MTU-chunked
// frame writes with bounded retry.
package ble

import (
	"context"
	"errors"
)

// Ikawa roaster BLE UUIDs
const (
	ServiceUUID    = "c92a6046-6c8d-4116-9d1d-d20a8f6a245f"
	WriteCharUUID  = "851a4582-19c1-4e6c-ab37-e7a03766ba16"
	NotifyCharUUID = "948c5059-7f00-46d9-ac55-bf090ae066e3"
)

var (
	// ErrDiscoveryFailed means no device advertising the roaster service was
	// found within the scan window.
	ErrDiscoveryFailed = errors.New("ble: no roaster found")
	// ErrConnectFailed means connection attempts did not succeed within the
	// connect timeout.
	ErrConnectFailed = errors.New("ble: connect failed")
	// ErrLinkUnavailable means a chunk write could not be completed within
	// the retry timeout.
	ErrLinkUnavailable = errors.New("ble: link unavailable")
	// ErrNotConnected is returned by Manager.Link while no link is up.
	ErrNotConnected = errors.New("ble: not connected")
	// ErrClosed is returned when the manager is closed during an operation.
	ErrClosed = errors.New("ble: closed")

	errWriteStalled     = errors.New("ble: write did not return in time")
	errDroppedInConnect = errors.New("ble: link dropped while connecting")
)

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic and waits for the peripheral's
	// acknowledgement.
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

// Device represents a discovered BLE peripheral.
type Device struct {
	Name string
	MAC  string
	RSSI int
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan discovers BLE peripherals advertising the given service UUID.
	// Returns discovered devices until ctx is cancelled or timeout.
	Scan(ctx context.Context, serviceUUID string) ([]Device, error)
	// Find returns the first peripheral advertising the given service UUID,
	// stopping the scan as soon as one is seen. It returns ErrDiscoveryFailed
	// if ctx ends first.
	Find(ctx context.Context, serviceUUID string) (Device, error)
	// Connect establishes a connection to the device with the given MAC address.
	Connect(ctx context.Context, mac string) (Connection, error)
}
