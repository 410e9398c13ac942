//go:build !darwin && !windows

package ble

// WriteAcknowledged reports whether BluetoothAdapter writes wait for the
// roaster's write response.
//
// tinygo bluetooth has no write-with-response here (BlueZ, HCI, SoftDevice),
// so a chunk counts as written once the stack accepts it. A lost chunk
// surfaces later as a reply timeout instead of a write retry.
const WriteAcknowledged = false

func (c *bluetoothCharacteristic) Write(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}
