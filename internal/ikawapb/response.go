package ikawapb

import "math"

// Response is the roaster's reply to a Cmd. Exactly one of the typed payload
// fields is set, matching the command that was sent.
//
//	field 1 (uint32):  seq
//	field 2 (enum):    resp
//	field 3..11 (msg): per-command payload
type Response struct {
	Seq                  uint32
	Resp                 RespStatus
	BootloaderGetVersion *RespBootloaderGetVersion
	MachPropType         *RespMachPropGetType
	MachID               *RespMachPropGetID
	MachStatusGetError   *RespMachStatusGetError
	MachStatusGetAll     *RespMachStatusGetAll
	ProfileGet           *RespProfileGet
	SettingGet           *RespSettingGet
	SettingGetInfo       *RespSettingGetInfo
	SettingGetList       *RespSettingGetList
}

func (r *Response) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(r.Seq))
	b = appendVarint(b, 2, uint64(r.Resp))
	if r.BootloaderGetVersion != nil {
		b = appendMessage(b, 3, r.BootloaderGetVersion)
	}
	if r.MachPropType != nil {
		b = appendMessage(b, 4, r.MachPropType)
	}
	if r.MachID != nil {
		b = appendMessage(b, 5, r.MachID)
	}
	if r.MachStatusGetError != nil {
		b = appendMessage(b, 6, r.MachStatusGetError)
	}
	if r.MachStatusGetAll != nil {
		b = appendMessage(b, 7, r.MachStatusGetAll)
	}
	if r.ProfileGet != nil {
		b = appendMessage(b, 8, r.ProfileGet)
	}
	if r.SettingGet != nil {
		b = appendMessage(b, 9, r.SettingGet)
	}
	if r.SettingGetInfo != nil {
		b = appendMessage(b, 10, r.SettingGetInfo)
	}
	if r.SettingGetList != nil {
		b = appendMessage(b, 11, r.SettingGetList)
	}
	return b
}

// UnmarshalResponse decodes a Response.
func UnmarshalResponse(b []byte) (*Response, error) {
	r := &Response{}
	err := walk(b, func(f field) error {
		var err error
		switch {
		case f.Num == 1 && f.isVarint():
			r.Seq = uint32(f.Varint)
		case f.Num == 2 && f.isVarint():
			r.Resp = RespStatus(f.Varint)
		case f.Num == 3:
			r.BootloaderGetVersion, err = unmarshalNested(f, unmarshalRespBootloaderGetVersion)
		case f.Num == 4:
			r.MachPropType, err = unmarshalNested(f, unmarshalRespMachPropGetType)
		case f.Num == 5:
			r.MachID, err = unmarshalNested(f, unmarshalRespMachPropGetID)
		case f.Num == 6:
			r.MachStatusGetError, err = unmarshalNested(f, unmarshalRespMachStatusGetError)
		case f.Num == 7:
			r.MachStatusGetAll, err = unmarshalNested(f, unmarshalRespMachStatusGetAll)
		case f.Num == 8:
			r.ProfileGet, err = unmarshalNested(f, unmarshalRespProfileGet)
		case f.Num == 9:
			r.SettingGet, err = unmarshalNested(f, unmarshalRespSettingGet)
		case f.Num == 10:
			r.SettingGetInfo, err = unmarshalNested(f, unmarshalRespSettingGetInfo)
		case f.Num == 11:
			r.SettingGetList, err = unmarshalNested(f, unmarshalRespSettingGetList)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

type RespBootloaderGetVersion struct {
	Version  uint32 // field 1
	Revision string // field 2
}

func (m *RespBootloaderGetVersion) Marshal() []byte {
	b := appendVarint(nil, 1, uint64(m.Version))
	return appendString(b, 2, m.Revision)
}

func unmarshalRespBootloaderGetVersion(b []byte) (*RespBootloaderGetVersion, error) {
	m := &RespBootloaderGetVersion{}
	err := walk(b, func(f field) error {
		switch {
		case f.Num == 1 && f.isVarint():
			m.Version = uint32(f.Varint)
		case f.Num == 2 && f.isBytes():
			m.Revision = string(f.Bytes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

type RespMachPropGetType struct {
	Type    MachType    // field 1
	Variant MachVariant // field 2
}

func (m *RespMachPropGetType) Marshal() []byte {
	b := appendVarint(nil, 1, uint64(m.Type))
	return appendVarint(b, 2, uint64(m.Variant))
}

func unmarshalRespMachPropGetType(b []byte) (*RespMachPropGetType, error) {
	m := &RespMachPropGetType{}
	err := walk(b, func(f field) error {
		switch {
		case f.Num == 1 && f.isVarint():
			m.Type = MachType(f.Varint)
		case f.Num == 2 && f.isVarint():
			m.Variant = MachVariant(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

type RespMachPropGetID struct {
	ID string // field 1
}

func (m *RespMachPropGetID) Marshal() []byte {
	return appendString(nil, 1, m.ID)
}

func unmarshalRespMachPropGetID(b []byte) (*RespMachPropGetID, error) {
	m := &RespMachPropGetID{}
	err := walk(b, func(f field) error {
		if f.Num == 1 && f.isBytes() {
			m.ID = string(f.Bytes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

type RespMachStatusGetError struct {
	Error uint32 // field 1
}

func (m *RespMachStatusGetError) Marshal() []byte {
	return appendVarint(nil, 1, uint64(m.Error))
}

func unmarshalRespMachStatusGetError(b []byte) (*RespMachStatusGetError, error) {
	m := &RespMachStatusGetError{}
	err := walk(b, func(f field) error {
		if f.Num == 1 && f.isVarint() {
			m.Error = uint32(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RespMachStatusGetAll is one status sample. Time is in tenths of a second
// since the roast started, temperatures are in tenths of a degree Celsius,
// Fan and Heater are raw 0-255 drive levels.
type RespMachStatusGetAll struct {
	Time        uint32    // field 1
	TempAbove   uint32    // field 2
	TempBelow   uint32    // field 3
	Fan         uint32    // field 4
	State       MachState // field 5
	Heater      uint32    // field 6
	Setpoint    uint32    // field 7
	FanMeasured uint32    // field 8
	BoardTemp   uint32    // field 9
}

func (m *RespMachStatusGetAll) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(m.Time))
	b = appendVarint(b, 2, uint64(m.TempAbove))
	b = appendVarint(b, 3, uint64(m.TempBelow))
	b = appendVarint(b, 4, uint64(m.Fan))
	b = appendVarint(b, 5, uint64(m.State))
	b = appendVarint(b, 6, uint64(m.Heater))
	b = appendVarint(b, 7, uint64(m.Setpoint))
	b = appendVarint(b, 8, uint64(m.FanMeasured))
	b = appendVarint(b, 9, uint64(m.BoardTemp))
	return b
}

func unmarshalRespMachStatusGetAll(b []byte) (*RespMachStatusGetAll, error) {
	m := &RespMachStatusGetAll{}
	err := walk(b, func(f field) error {
		if !f.isVarint() {
			return nil
		}
		v := uint32(f.Varint)
		switch f.Num {
		case 1:
			m.Time = v
		case 2:
			m.TempAbove = v
		case 3:
			m.TempBelow = v
		case 4:
			m.Fan = v
		case 5:
			m.State = MachState(v)
		case 6:
			m.Heater = v
		case 7:
			m.Setpoint = v
		case 8:
			m.FanMeasured = v
		case 9:
			m.BoardTemp = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

type RespProfileGet struct {
	Profile *RoastProfile // field 1
}

func (m *RespProfileGet) Marshal() []byte {
	if m.Profile == nil {
		return nil
	}
	return appendMessage(nil, 1, m.Profile)
}

func unmarshalRespProfileGet(b []byte) (*RespProfileGet, error) {
	m := &RespProfileGet{}
	err := walk(b, func(f field) error {
		var err error
		if f.Num == 1 {
			m.Profile, err = unmarshalNested(f, UnmarshalRoastProfile)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

type RespSettingGet struct {
	Number uint32 // field 1
	ValU32 uint32 // field 2
}

// Float32 reinterprets the raw value as an IEEE-754 single, for settings of
// type SettingFloat.
func (m *RespSettingGet) Float32() float32 {
	return math.Float32frombits(m.ValU32)
}

func (m *RespSettingGet) Marshal() []byte {
	b := appendVarint(nil, 1, uint64(m.Number))
	return appendVarint(b, 2, uint64(m.ValU32))
}

func unmarshalRespSettingGet(b []byte) (*RespSettingGet, error) {
	m := &RespSettingGet{}
	err := walk(b, func(f field) error {
		switch {
		case f.Num == 1 && f.isVarint():
			m.Number = uint32(f.Varint)
		case f.Num == 2 && f.isVarint():
			m.ValU32 = uint32(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

type RespSettingGetInfo struct {
	Number uint32      // field 1
	Name   string      // field 2
	Type   SettingType // field 3
}

func (m *RespSettingGetInfo) Marshal() []byte {
	b := appendVarint(nil, 1, uint64(m.Number))
	b = appendString(b, 2, m.Name)
	return appendVarint(b, 3, uint64(m.Type))
}

func unmarshalRespSettingGetInfo(b []byte) (*RespSettingGetInfo, error) {
	m := &RespSettingGetInfo{}
	err := walk(b, func(f field) error {
		switch {
		case f.Num == 1 && f.isVarint():
			m.Number = uint32(f.Varint)
		case f.Num == 2 && f.isBytes():
			m.Name = string(f.Bytes)
		case f.Num == 3 && f.isVarint():
			m.Type = SettingType(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RespSettingGetList holds the setting numbers from the requested offset on.
// An empty list means the offset is past the last setting.
type RespSettingGetList struct {
	Number []uint32 // field 1, packed
}

func (m *RespSettingGetList) Marshal() []byte {
	return appendPackedVarints(nil, 1, m.Number)
}

func unmarshalRespSettingGetList(b []byte) (*RespSettingGetList, error) {
	m := &RespSettingGetList{}
	err := walk(b, func(f field) error {
		var err error
		if f.Num == 1 {
			m.Number, err = consumePackedVarints(m.Number, f)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
