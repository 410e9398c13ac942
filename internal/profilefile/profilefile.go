// Package profilefile reads and writes roast profiles as YAML in human units:
// seconds, degrees Celsius and fan percent.
//
//	name: Medium Espresso
//	temp_sensor: BELOW_BEANS
//	temp_points:
//	  - {time: 0, temp: 170}
//	  - {time: 240, temp: 225.5}
//	fan_points:
//	  - {time: 0, fan: 90}
//	cooldown_fan: {time: 90, fan: 100}
package profilefile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

// DefaultSchema is the profile schema version the roaster expects.
const DefaultSchema = 1

// idLen is the length of a generated profile ID.
const idLen = 16

// File is the YAML form of a roast profile.
type File struct {
	Schema       uint32      `yaml:"schema,omitempty"`
	ID           string      `yaml:"id,omitempty"` // hex
	Name         string      `yaml:"name"`
	TempSensor   string      `yaml:"temp_sensor,omitempty"`
	TempPoints   []TempPoint `yaml:"temp_points"`
	FanPoints    []FanPoint  `yaml:"fan_points"`
	CooldownFan  *FanPoint   `yaml:"cooldown_fan,omitempty"`
	CoffeeName   string      `yaml:"coffee_name,omitempty"`
	CoffeeID     string      `yaml:"coffee_id,omitempty"`
	CoffeeWebURL string      `yaml:"coffee_web_url,omitempty"`
	UserID       string      `yaml:"user_id,omitempty"`
}

// TempPoint is a temperature setpoint at a time offset.
type TempPoint struct {
	Time float64 `yaml:"time"` // seconds
	Temp float64 `yaml:"temp"` // °C
}

// FanPoint is a fan setpoint at a time offset.
type FanPoint struct {
	Time float64 `yaml:"time"` // seconds
	Fan  float64 `yaml:"fan"`  // percent
}

// Load reads a profile file.
func Load(path string) (*ikawapb.RoastProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML profile. A missing schema defaults to 1, a missing id
// to 16 random bytes and a missing temp_sensor to BELOW_BEANS.
func Parse(data []byte) (*ikawapb.RoastProfile, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	return f.Profile()
}

// Profile converts f into the roaster's representation, filling defaults.
func (f *File) Profile() (*ikawapb.RoastProfile, error) {
	p := &ikawapb.RoastProfile{
		Schema:       f.Schema,
		Name:         f.Name,
		TempSensor:   ikawapb.TempSensorBelowBeans,
		CoffeeName:   f.CoffeeName,
		CoffeeID:     f.CoffeeID,
		CoffeeWebURL: f.CoffeeWebURL,
		UserID:       f.UserID,
	}
	if p.Schema == 0 {
		p.Schema = DefaultSchema
	}

	if f.ID != "" {
		id, err := hex.DecodeString(f.ID)
		if err != nil {
			return nil, fmt.Errorf("id: %w", err)
		}
		p.ID = id
	} else {
		p.ID = make([]byte, idLen)
		if _, err := rand.Read(p.ID); err != nil {
			return nil, fmt.Errorf("generating id: %w", err)
		}
	}

	if f.TempSensor != "" {
		sensor, err := ikawapb.ParseTempSensor(f.TempSensor)
		if err != nil {
			return nil, err
		}
		p.TempSensor = sensor
	}

	for i, pt := range f.TempPoints {
		t, err := tenths(pt.Time)
		if err != nil {
			return nil, fmt.Errorf("temp_points[%d].time: %w", i, err)
		}
		v, err := tenths(pt.Temp)
		if err != nil {
			return nil, fmt.Errorf("temp_points[%d].temp: %w", i, err)
		}
		p.TempPoints = append(p.TempPoints, &ikawapb.ProfilePoint{Time: t, Value: v})
	}
	for i, pt := range f.FanPoints {
		fp, err := pt.point()
		if err != nil {
			return nil, fmt.Errorf("fan_points[%d]: %w", i, err)
		}
		p.FanPoints = append(p.FanPoints, fp)
	}
	if f.CooldownFan != nil {
		fp, err := f.CooldownFan.point()
		if err != nil {
			return nil, fmt.Errorf("cooldown_fan: %w", err)
		}
		p.CooldownFan = fp
	}
	return p, nil
}

// FromProfile converts a roaster profile into its YAML form.
func FromProfile(p *ikawapb.RoastProfile) *File {
	f := &File{
		Schema:       p.Schema,
		ID:           hex.EncodeToString(p.ID),
		Name:         p.Name,
		TempSensor:   p.TempSensor.String(),
		CoffeeName:   p.CoffeeName,
		CoffeeID:     p.CoffeeID,
		CoffeeWebURL: p.CoffeeWebURL,
		UserID:       p.UserID,
	}
	for _, pt := range p.TempPoints {
		f.TempPoints = append(f.TempPoints, TempPoint{
			Time: float64(pt.Time) / 10,
			Temp: float64(pt.Value) / 10,
		})
	}
	for _, pt := range p.FanPoints {
		f.FanPoints = append(f.FanPoints, fanPoint(pt))
	}
	if p.CooldownFan != nil {
		cd := fanPoint(p.CooldownFan)
		f.CooldownFan = &cd
	}
	return f
}

// Marshal renders p as YAML.
func Marshal(p *ikawapb.RoastProfile) ([]byte, error) {
	data, err := yaml.Marshal(FromProfile(p))
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}
	return data, nil
}

func (pt FanPoint) point() (*ikawapb.ProfilePoint, error) {
	t, err := tenths(pt.Time)
	if err != nil {
		return nil, fmt.Errorf("time: %w", err)
	}
	if pt.Fan < 0 || pt.Fan > 100 {
		return nil, fmt.Errorf("fan must be within 0-100%%, got %v", pt.Fan)
	}
	return &ikawapb.ProfilePoint{Time: t, Value: uint32(math.Round(pt.Fan * 255 / 100))}, nil
}

func fanPoint(pt *ikawapb.ProfilePoint) FanPoint {
	return FanPoint{
		Time: float64(pt.Time) / 10,
		Fan:  math.Round(float64(pt.Value)*1000/255) / 10,
	}
}

// tenths converts a non-negative quantity to the roaster's fixed-point unit.
func tenths(v float64) (uint32, error) {
	if v < 0 || math.IsNaN(v) || v*10 > math.MaxUint32 {
		return 0, fmt.Errorf("value %v out of range", v)
	}
	return uint32(math.Round(v * 10)), nil
}
