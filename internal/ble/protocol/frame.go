// Package protocol implements the roaster's byte-level wire protocol: the
// 16-bit checksum, byte-stuffed framing, reassembly of frames from BLE
// notifications, and MTU chunking of outbound frames.
//
// Wire format:
//
//	FLAG (0x7E) | escape(payload) | escape(crc16(payload), big-endian) | FLAG (0x7E)
//
// Inside a frame, 0x7D is sent as 0x7D 0x5D and 0x7E as 0x7D 0x5E.
package protocol

import (
	"errors"
	"fmt"
)

const (
	FrameByte  = 0x7E
	EscapeByte = 0x7D

	escapedEscape = 0x5D
	escapedFrame  = 0x5E

	crcSize = 2
)

var (
	// ErrInvalidFrame is returned for frames that are not delimited or
	// cannot be unescaped.
	ErrInvalidFrame = errors.New("protocol: invalid frame")
	// ErrChecksumMismatch is returned when a frame's checksum does not match
	// its payload.
	ErrChecksumMismatch = errors.New("protocol: checksum mismatch")
)

// EncodeFrame wraps payload in a delimited, checksummed, byte-stuffed frame.
func EncodeFrame(payload []byte) []byte {
	crc := AppendCRC16(nil, payload)

	frame := make([]byte, 0, len(payload)+len(crc)+4)
	frame = append(frame, FrameByte)
	frame = appendEscaped(frame, payload)
	frame = appendEscaped(frame, crc)
	frame = append(frame, FrameByte)
	return frame
}

// DecodeFrame validates and unwraps a frame produced by EncodeFrame,
// returning the payload. The checksum is verified before anything is
// returned.
func DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < 2 || frame[0] != FrameByte || frame[len(frame)-1] != FrameByte {
		return nil, fmt.Errorf("%w: missing frame delimiters", ErrInvalidFrame)
	}

	body, err := unescape(frame[1 : len(frame)-1])
	if err != nil {
		return nil, err
	}
	if len(body) < crcSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a checksum", ErrInvalidFrame, len(body))
	}

	data := body[:len(body)-crcSize]
	received := uint16(body[len(body)-2])<<8 | uint16(body[len(body)-1])
	if computed := CRC16(data, CRCInit); computed != received {
		return nil, fmt.Errorf("%w: received 0x%04x, computed 0x%04x", ErrChecksumMismatch, received, computed)
	}
	return data, nil
}

func appendEscaped(dst, src []byte) []byte {
	for _, b := range src {
		switch b {
		case EscapeByte:
			dst = append(dst, EscapeByte, escapedEscape)
		case FrameByte:
			dst = append(dst, EscapeByte, escapedFrame)
		default:
			dst = append(dst, b)
		}
	}
	return dst
}

func unescape(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		b := src[i]
		if b != EscapeByte {
			out = append(out, b)
			continue
		}
		i++
		if i == len(src) {
			return nil, fmt.Errorf("%w: trailing escape byte", ErrInvalidFrame)
		}
		switch src[i] {
		case escapedEscape:
			out = append(out, EscapeByte)
		case escapedFrame:
			out = append(out, FrameByte)
		default:
			return nil, fmt.Errorf("%w: invalid escape sequence 0x7d 0x%02x", ErrInvalidFrame, src[i])
		}
	}
	return out, nil
}
