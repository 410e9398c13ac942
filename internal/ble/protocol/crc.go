package protocol

// CRCInit is the initial accumulator value the roaster firmware uses.
const CRCInit uint16 = 0xFFFF

// CRC16 computes the roaster's 16-bit checksum over data, starting from init.
// This is not a table-driven CCITT variant: the shift/xor sequence below must
// match the firmware bit for bit.
func CRC16(data []byte, init uint16) uint16 {
	crc := uint32(init)
	for _, b := range data {
		x := uint32(b) ^ (crc & 0xFF)
		y := x ^ ((x << 4) & 0xFF)
		crc = ((((crc >> 8) & 0xFF) | ((y << 8) & 0xFFFF)) ^ (y >> 4)) ^ ((y << 3) & 0xFFFF)
	}
	return uint16(crc & 0xFFFF)
}

// AppendCRC16 appends the checksum of data to dst in big-endian order.
func AppendCRC16(dst, data []byte) []byte {
	crc := CRC16(data, CRCInit)
	return append(dst, byte(crc>>8), byte(crc))
}
