package ikawa

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

func sampleProfile() *ikawapb.RoastProfile {
	return &ikawapb.RoastProfile{
		Schema: 1,
		ID:     []byte{0xFB, 0xFF, 0x3E, 0x10, 0x7E, 0x7D},
		Name:   "Medium Espresso",
		TempPoints: []*ikawapb.ProfilePoint{
			{Time: 0, Value: 1700},
			{Time: 2400, Value: 2250},
		},
		FanPoints: []*ikawapb.ProfilePoint{
			{Time: 0, Value: 230},
			{Time: 2400, Value: 160},
		},
		CooldownFan: &ikawapb.ProfilePoint{Time: 900, Value: 255},
		TempSensor:  ikawapb.TempSensorBelowBeans,
	}
}

func assertSameProfile(t *testing.T, got, want *ikawapb.RoastProfile) {
	t.Helper()
	if !bytes.Equal(got.Marshal(), want.Marshal()) {
		t.Errorf("profile = %+v, want %+v", got, want)
	}
}

func TestProfileToURL(t *testing.T) {
	u := ProfileToURL(sampleProfile())
	if !strings.HasPrefix(u, "https://share.ikawa.support/profile_home/?") {
		t.Errorf("ProfileToURL() = %q, missing share prefix", u)
	}
}

func TestProfileURLRoundTrip(t *testing.T) {
	p := sampleProfile()
	u := ProfileToURL(p)
	bare := strings.TrimPrefix(u, ProfileURLBase)

	tests := []struct {
		name string
		in   string
	}{
		{"full url", u},
		{"bare base64", bare},
		{"other host", "https://example.com/x?a=b?" + bare},
		{"percent encoded", ProfileURLBase + strings.NewReplacer("+", "%2B", "/", "%2F", "=", "%3D").Replace(bare)},
		{"surrounding whitespace", "  " + u + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProfileFromURL(tt.in)
			if err != nil {
				t.Fatalf("ProfileFromURL() error = %v", err)
			}
			assertSameProfile(t, got, p)
		})
	}
}

func TestProfileFromURLInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not base64", ProfileURLBase + "not*base64"},
		{"truncated message", base64.StdEncoding.EncodeToString([]byte{0x1A, 0x10, 'x'})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ProfileFromURL(tt.in); err == nil {
				t.Errorf("ProfileFromURL(%q) should fail", tt.in)
			}
		})
	}
}
