package ble

import (
	"runtime"
	"testing"
)

func TestBluetoothCharacteristicImplementsInterface(t *testing.T) {
	var _ Characteristic = (*bluetoothCharacteristic)(nil)
}

func TestWriteAcknowledgedByPlatform(t *testing.T) {
	want := runtime.GOOS == "darwin" || runtime.GOOS == "windows"
	if WriteAcknowledged != want {
		t.Errorf("WriteAcknowledged = %v on %s, want %v", WriteAcknowledged, runtime.GOOS, want)
	}
}
