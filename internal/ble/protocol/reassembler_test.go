package protocol

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReassemblerSingleChunk(t *testing.T) {
	r := NewReassembler(quietLogger())
	got := r.Feed(EncodeFrame([]byte{0x01, 0x02}))
	if len(got) != 1 || !bytes.Equal(got[0], []byte{0x01, 0x02}) {
		t.Fatalf("Feed() = %x, want [0102]", got)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", r.Buffered())
	}
}

func TestReassemblerSplitAcrossChunks(t *testing.T) {
	payload := bytes.Repeat([]byte{0x10, 0x7E, 0x7D}, 20)
	frame := EncodeFrame(payload)

	r := NewReassembler(quietLogger())
	var got [][]byte
	for _, chunk := range ChunkFrame(frame, 7) {
		got = append(got, r.Feed(chunk)...)
	}
	if len(got) != 1 {
		t.Fatalf("got %d payloads, want 1", len(got))
	}
	if !bytes.Equal(got[0], payload) {
		t.Errorf("payload = %x, want %x", got[0], payload)
	}
}

func TestReassemblerByteAtATime(t *testing.T) {
	frame := EncodeFrame([]byte("status"))
	r := NewReassembler(quietLogger())
	var got [][]byte
	for i := range frame {
		out := r.Feed(frame[i : i+1])
		if i < len(frame)-1 && len(out) != 0 {
			t.Fatalf("frame completed early at byte %d", i)
		}
		got = append(got, out...)
	}
	if len(got) != 1 || string(got[0]) != "status" {
		t.Errorf("Feed() = %q, want [status]", got)
	}
}

func TestReassemblerDiscardsLeadingGarbage(t *testing.T) {
	r := NewReassembler(quietLogger())
	in := append([]byte{0x01, 0x02, 0x03}, EncodeFrame([]byte{0xAB})...)
	got := r.Feed(in)
	if len(got) != 1 || !bytes.Equal(got[0], []byte{0xAB}) {
		t.Errorf("Feed() = %x, want [ab]", got)
	}
}

func TestReassemblerGarbageWithoutDelimiterIsDropped(t *testing.T) {
	r := NewReassembler(quietLogger())
	if got := r.Feed([]byte{0x01, 0x02, 0x03}); len(got) != 0 {
		t.Fatalf("Feed() = %x, want nothing", got)
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", r.Buffered())
	}
}

func TestReassemblerMultipleFramesInOneChunk(t *testing.T) {
	var in []byte
	in = append(in, EncodeFrame([]byte{0x01})...)
	in = append(in, EncodeFrame([]byte{0x02})...)
	in = append(in, EncodeFrame([]byte{0x03})...)

	r := NewReassembler(quietLogger())
	got := r.Feed(in)
	if len(got) != 3 {
		t.Fatalf("got %d payloads, want 3", len(got))
	}
	for i, p := range got {
		if !bytes.Equal(p, []byte{byte(i + 1)}) {
			t.Errorf("payload[%d] = %x, want %02x", i, p, i+1)
		}
	}
}

func TestReassemblerDegenerateCandidateDoesNotStall(t *testing.T) {
	// A stray closing delimiter right before a real frame produces "7e 7e".
	in := append([]byte{FrameByte}, EncodeFrame([]byte{0x05, 0x06})...)
	in = append(in, EncodeFrame([]byte{0x07})...)

	r := NewReassembler(quietLogger())
	got := r.Feed(in)
	if len(got) != 2 {
		t.Fatalf("got %d payloads, want 2: %x", len(got), got)
	}
	if !bytes.Equal(got[0], []byte{0x05, 0x06}) || !bytes.Equal(got[1], []byte{0x07}) {
		t.Errorf("payloads = %x, want [0506 07]", got)
	}
}

func TestReassemblerChecksumFailureIsDropped(t *testing.T) {
	bad := EncodeFrame([]byte{0x01, 0x02})
	bad[1] ^= 0xFF
	in := append(bad, EncodeFrame([]byte{0x09})...)

	r := NewReassembler(quietLogger())
	got := r.Feed(in)
	if len(got) != 1 || !bytes.Equal(got[0], []byte{0x09}) {
		t.Errorf("Feed() = %x, want only [09]", got)
	}
}

func TestReassemblerKeepsPartialFrame(t *testing.T) {
	frame := EncodeFrame([]byte{0x01, 0x02, 0x03})
	r := NewReassembler(quietLogger())
	if got := r.Feed(frame[:3]); len(got) != 0 {
		t.Fatalf("Feed(partial) = %x, want nothing", got)
	}
	if r.Buffered() != 3 {
		t.Errorf("Buffered() = %d, want 3", r.Buffered())
	}
	r.Reset()
	if r.Buffered() != 0 {
		t.Errorf("Buffered() after Reset = %d, want 0", r.Buffered())
	}
}
