// internal/ble/protocol/chunk_test.go
package protocol

import (
	"bytes"
	"testing"
)

func TestChunkFrameFitsInOne(t *testing.T) {
	frame := EncodeFrame([]byte{0x01, 0x02})
	chunks := ChunkFrame(frame, DefaultMTU)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if !bytes.Equal(chunks[0], frame) {
		t.Errorf("chunk[0] = %x, want %x", chunks[0], frame)
	}
}

func TestChunkFrameEmpty(t *testing.T) {
	if chunks := ChunkFrame(nil, DefaultMTU); len(chunks) != 0 {
		t.Errorf("got %d chunks for empty frame, want 0", len(chunks))
	}
}

func TestChunkFrameZeroMTU(t *testing.T) {
	if chunks := ChunkFrame([]byte{FrameByte}, 0); chunks != nil {
		t.Errorf("ChunkFrame with mtu=0 should return nil, got %v", chunks)
	}
}

func TestChunkFrameExactFit(t *testing.T) {
	frame := bytes.Repeat([]byte{0xAA}, DefaultMTU)
	chunks := ChunkFrame(frame, DefaultMTU)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestChunkFrameOneByteOver(t *testing.T) {
	frame := bytes.Repeat([]byte{0xAA}, DefaultMTU+1)
	chunks := ChunkFrame(frame, DefaultMTU)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if len(chunks[1]) != 1 {
		t.Errorf("len(chunk[1]) = %d, want 1", len(chunks[1]))
	}
}

func TestChunkFramePreservesOrder(t *testing.T) {
	frame := make([]byte, 95)
	for i := range frame {
		frame[i] = byte(i)
	}
	chunks := ChunkFrame(frame, DefaultMTU)
	if len(chunks) != 5 {
		t.Fatalf("got %d chunks, want 5", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > DefaultMTU {
			t.Errorf("chunk[%d] len=%d exceeds mtu=%d", i, len(c), DefaultMTU)
		}
	}
	if reassembled := bytes.Join(chunks, nil); !bytes.Equal(reassembled, frame) {
		t.Errorf("reassembled = %x, want %x", reassembled, frame)
	}
}

func TestChunkFrameAppendDoesNotClobberNext(t *testing.T) {
	frame := bytes.Repeat([]byte{0x11}, 2*DefaultMTU)
	chunks := ChunkFrame(frame, DefaultMTU)
	_ = append(chunks[0], 0xFF)
	if chunks[1][0] != 0x11 {
		t.Errorf("append to chunk[0] overwrote chunk[1][0] = 0x%02x", chunks[1][0])
	}
}
