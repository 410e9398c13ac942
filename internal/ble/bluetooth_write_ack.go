//go:build darwin || windows

package ble

// WriteAcknowledged reports whether BluetoothAdapter writes wait for the
// roaster's write response.
const WriteAcknowledged = true

func (c *bluetoothCharacteristic) Write(data []byte) error {
	_, err := c.char.Write(data)
	return err
}
