// Package ikawa is the Ikawa roaster client: it sequences commands, frames
// them onto the BLE link and correlates the roaster's replies.
package ikawa

import "errors"

var (
	// ErrResponseTimeout means no correlated reply arrived within the retry
	// timeout.
	ErrResponseTimeout = errors.New("ikawa: response timeout")
	// ErrSequenceMismatch is logged when a reply carries an unexpected
	// sequence number. It never reaches the caller.
	ErrSequenceMismatch = errors.New("ikawa: sequence mismatch")
	// ErrSequenceAssigned means the caller set Cmd.Seq; the client assigns it.
	ErrSequenceAssigned = errors.New("ikawa: command sequence must be left zero")
	// ErrCommandPending means another command is still awaiting its reply.
	ErrCommandPending = errors.New("ikawa: command already pending")
	// ErrDeviceStatus means the roaster answered with a non-OK status.
	ErrDeviceStatus = errors.New("ikawa: device reported failure")
)
