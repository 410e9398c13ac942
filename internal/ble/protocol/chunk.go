package protocol

// DefaultMTU is the number of bytes the roaster accepts per characteristic
// write.
const DefaultMTU = 20

// ChunkFrame splits frame into consecutive slices of at most mtu bytes.
// Chunks alias frame and must be written in order; the receiver rebuilds
// the frame from its delimiters, not from chunk boundaries. Returns nil for
// an empty frame or a non-positive mtu.
func ChunkFrame(frame []byte, mtu int) [][]byte {
	if len(frame) == 0 || mtu <= 0 {
		return nil
	}

	chunks := make([][]byte, 0, (len(frame)+mtu-1)/mtu)
	for len(frame) > 0 {
		n := min(mtu, len(frame))
		chunks = append(chunks, frame[:n:n])
		frame = frame[n:]
	}
	return chunks
}
