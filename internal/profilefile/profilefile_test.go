package profilefile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

const sampleYAML = `
schema: 1
id: 00112233445566778899aabbccddeeff
name: Medium Espresso
temp_sensor: ABOVE_BEANS
temp_points:
  - {time: 0, temp: 170}
  - {time: 240, temp: 225.5}
fan_points:
  - {time: 0, fan: 90}
  - {time: 240, fan: 62.7}
cooldown_fan: {time: 90, fan: 100}
coffee_name: Yirgacheffe
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if p.Schema != 1 || p.Name != "Medium Espresso" || p.CoffeeName != "Yirgacheffe" {
		t.Errorf("header = %d/%q/%q", p.Schema, p.Name, p.CoffeeName)
	}
	if len(p.ID) != 16 || p.ID[15] != 0xFF {
		t.Errorf("ID = %x", p.ID)
	}
	if p.TempSensor != ikawapb.TempSensorAboveBeans {
		t.Errorf("TempSensor = %s, want ABOVE_BEANS", p.TempSensor)
	}
	if len(p.TempPoints) != 2 || *p.TempPoints[1] != (ikawapb.ProfilePoint{Time: 2400, Value: 2255}) {
		t.Errorf("TempPoints = %v", p.TempPoints)
	}
	if len(p.FanPoints) != 2 || p.FanPoints[0].Value != 230 || p.FanPoints[1].Value != 160 {
		t.Errorf("FanPoints = %v", p.FanPoints)
	}
	if p.CooldownFan == nil || *p.CooldownFan != (ikawapb.ProfilePoint{Time: 900, Value: 255}) {
		t.Errorf("CooldownFan = %v", p.CooldownFan)
	}
}

func TestParseDefaults(t *testing.T) {
	p, err := Parse([]byte("name: bare\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Schema != DefaultSchema {
		t.Errorf("Schema = %d, want %d", p.Schema, DefaultSchema)
	}
	if len(p.ID) != 16 {
		t.Errorf("generated ID length = %d, want 16", len(p.ID))
	}
	if p.TempSensor != ikawapb.TempSensorBelowBeans {
		t.Errorf("TempSensor = %s, want BELOW_BEANS", p.TempSensor)
	}

	q, _ := Parse([]byte("name: bare\n"))
	if bytes.Equal(p.ID, q.ID) {
		t.Error("generated IDs should differ between profiles")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bad yaml", "name: [unterminated\n"},
		{"bad id", "id: zz\n"},
		{"unknown sensor", "temp_sensor: INSIDE\n"},
		{"negative time", "temp_points:\n  - {time: -1, temp: 100}\n"},
		{"fan over 100", "fan_points:\n  - {time: 0, fan: 120}\n"},
		{"bad cooldown", "cooldown_fan: {time: 0, fan: -5}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.in)); err == nil {
				t.Errorf("Parse(%q) should fail", tt.in)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), "temp_sensor: ABOVE_BEANS") {
		t.Errorf("Marshal() output missing sensor name:\n%s", data)
	}

	q, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal()) error = %v", err)
	}
	if !bytes.Equal(p.Marshal(), q.Marshal()) {
		t.Errorf("round trip changed profile:\n got %+v\nwant %+v", q, p)
	}
}

func TestFanPercentRoundTripsEveryLevel(t *testing.T) {
	for v := uint32(0); v <= 255; v++ {
		fp := fanPoint(&ikawapb.ProfilePoint{Value: v})
		pt, err := fp.point()
		if err != nil {
			t.Fatalf("point() error = %v", err)
		}
		if pt.Value != v {
			t.Fatalf("fan %d -> %v%% -> %d", v, fp.Fan, pt.Value)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatalf("failed to write profile: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Name != "Medium Espresso" {
		t.Errorf("Name = %q", p.Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}
