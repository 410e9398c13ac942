package ikawapb

// ProfilePoint is one point of a profile curve. Time is in tenths of a
// second; Value is tenths of a degree Celsius for temperature curves and a
// 0-255 drive level for fan curves.
type ProfilePoint struct {
	Time  uint32 // field 1
	Value uint32 // field 2
}

func (p *ProfilePoint) Marshal() []byte {
	b := appendVarint(nil, 1, uint64(p.Time))
	return appendVarint(b, 2, uint64(p.Value))
}

func unmarshalProfilePoint(b []byte) (*ProfilePoint, error) {
	p := &ProfilePoint{}
	err := walk(b, func(f field) error {
		switch {
		case f.Num == 1 && f.isVarint():
			p.Time = uint32(f.Varint)
		case f.Num == 2 && f.isVarint():
			p.Value = uint32(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RoastProfile is the roast recipe stored on the roaster.
type RoastProfile struct {
	Schema       uint32          // field 1
	ID           []byte          // field 2
	Name         string          // field 3
	TempPoints   []*ProfilePoint // field 4
	FanPoints    []*ProfilePoint // field 5
	CooldownFan  *ProfilePoint   // field 6
	TempSensor   TempSensor      // field 7
	CoffeeName   string          // field 8
	CoffeeID     string          // field 9
	CoffeeWebURL string          // field 10
	UserID       string          // field 11
}

func (p *RoastProfile) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(p.Schema))
	b = appendBytes(b, 2, p.ID)
	b = appendString(b, 3, p.Name)
	for _, pt := range p.TempPoints {
		if pt != nil {
			b = appendMessage(b, 4, pt)
		}
	}
	for _, pt := range p.FanPoints {
		if pt != nil {
			b = appendMessage(b, 5, pt)
		}
	}
	if p.CooldownFan != nil {
		b = appendMessage(b, 6, p.CooldownFan)
	}
	b = appendVarint(b, 7, uint64(p.TempSensor))
	b = appendString(b, 8, p.CoffeeName)
	b = appendString(b, 9, p.CoffeeID)
	b = appendString(b, 10, p.CoffeeWebURL)
	b = appendString(b, 11, p.UserID)
	return b
}

// UnmarshalRoastProfile decodes a RoastProfile.
func UnmarshalRoastProfile(b []byte) (*RoastProfile, error) {
	p := &RoastProfile{}
	err := walk(b, func(f field) error {
		switch {
		case f.Num == 1 && f.isVarint():
			p.Schema = uint32(f.Varint)
		case f.Num == 2 && f.isBytes():
			p.ID = append([]byte(nil), f.Bytes...)
		case f.Num == 3 && f.isBytes():
			p.Name = string(f.Bytes)
		case f.Num == 4:
			pt, err := unmarshalNested(f, unmarshalProfilePoint)
			if err != nil {
				return err
			}
			p.TempPoints = append(p.TempPoints, pt)
		case f.Num == 5:
			pt, err := unmarshalNested(f, unmarshalProfilePoint)
			if err != nil {
				return err
			}
			p.FanPoints = append(p.FanPoints, pt)
		case f.Num == 6:
			pt, err := unmarshalNested(f, unmarshalProfilePoint)
			if err != nil {
				return err
			}
			p.CooldownFan = pt
		case f.Num == 7 && f.isVarint():
			p.TempSensor = TempSensor(f.Varint)
		case f.Num == 8 && f.isBytes():
			p.CoffeeName = string(f.Bytes)
		case f.Num == 9 && f.isBytes():
			p.CoffeeID = string(f.Bytes)
		case f.Num == 10 && f.isBytes():
			p.CoffeeWebURL = string(f.Bytes)
		case f.Num == 11 && f.isBytes():
			p.UserID = string(f.Bytes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
