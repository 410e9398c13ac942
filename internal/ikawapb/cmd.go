package ikawapb

// Cmd is a request to the roaster. Seq is assigned by the client; callers
// leave it zero.
//
//	field 1 (enum):    cmd_type
//	field 2 (uint32):  seq
//	field 10 (msg):    profile_set
//	field 11 (msg):    setting_get
//	field 12 (msg):    setting_set
//	field 13 (msg):    setting_get_info
//	field 14 (msg):    setting_get_list
type Cmd struct {
	CmdType        CmdType
	Seq            uint32
	ProfileSet     *CmdProfileSet
	SettingGet     *CmdSettingGet
	SettingSet     *CmdSettingSet
	SettingGetInfo *CmdSettingGetInfo
	SettingGetList *CmdSettingGetList
}

// Marshal encodes the command. A BOOTLOADER_GET_VERSION command with Seq 0
// encodes to zero bytes.
func (c *Cmd) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(c.CmdType))
	b = appendVarint(b, 2, uint64(c.Seq))
	if c.ProfileSet != nil {
		b = appendMessage(b, 10, c.ProfileSet)
	}
	if c.SettingGet != nil {
		b = appendMessage(b, 11, c.SettingGet)
	}
	if c.SettingSet != nil {
		b = appendMessage(b, 12, c.SettingSet)
	}
	if c.SettingGetInfo != nil {
		b = appendMessage(b, 13, c.SettingGetInfo)
	}
	if c.SettingGetList != nil {
		b = appendMessage(b, 14, c.SettingGetList)
	}
	return b
}

// UnmarshalCmd decodes a Cmd.
func UnmarshalCmd(b []byte) (*Cmd, error) {
	c := &Cmd{}
	err := walk(b, func(f field) error {
		var err error
		switch {
		case f.Num == 1 && f.isVarint():
			c.CmdType = CmdType(f.Varint)
		case f.Num == 2 && f.isVarint():
			c.Seq = uint32(f.Varint)
		case f.Num == 10:
			c.ProfileSet, err = unmarshalNested(f, UnmarshalCmdProfileSet)
		case f.Num == 11:
			c.SettingGet, err = unmarshalNested(f, unmarshalCmdSettingGet)
		case f.Num == 12:
			c.SettingSet, err = unmarshalNested(f, unmarshalCmdSettingSet)
		case f.Num == 13:
			c.SettingGetInfo, err = unmarshalNested(f, unmarshalCmdSettingGetInfo)
		case f.Num == 14:
			c.SettingGetList, err = unmarshalNested(f, unmarshalCmdSettingGetList)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CmdProfileSet carries the profile to install.
type CmdProfileSet struct {
	Profile *RoastProfile // field 1
}

func (m *CmdProfileSet) Marshal() []byte {
	if m.Profile == nil {
		return nil
	}
	return appendMessage(nil, 1, m.Profile)
}

// UnmarshalCmdProfileSet decodes a CmdProfileSet.
func UnmarshalCmdProfileSet(b []byte) (*CmdProfileSet, error) {
	m := &CmdProfileSet{}
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

// CmdSettingGet reads one setting.
type CmdSettingGet struct {
	Number uint32 // field 1
}

func (m *CmdSettingGet) Marshal() []byte {
	return appendVarint(nil, 1, uint64(m.Number))
}

func unmarshalCmdSettingGet(b []byte) (*CmdSettingGet, error) {
	m := &CmdSettingGet{}
	err := walk(b, func(f field) error {
		if f.Num == 1 && f.isVarint() {
			m.Number = uint32(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CmdSettingSet writes one setting's raw 32-bit value.
type CmdSettingSet struct {
	Number uint32 // field 1
	ValU32 uint32 // field 2
}

func (m *CmdSettingSet) Marshal() []byte {
	b := appendVarint(nil, 1, uint64(m.Number))
	return appendVarint(b, 2, uint64(m.ValU32))
}

func unmarshalCmdSettingSet(b []byte) (*CmdSettingSet, error) {
	m := &CmdSettingSet{}
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

// CmdSettingGetInfo asks for a setting's name and type.
type CmdSettingGetInfo struct {
	Number uint32 // field 1
}

func (m *CmdSettingGetInfo) Marshal() []byte {
	return appendVarint(nil, 1, uint64(m.Number))
}

func unmarshalCmdSettingGetInfo(b []byte) (*CmdSettingGetInfo, error) {
	m := &CmdSettingGetInfo{}
	err := walk(b, func(f field) error {
		if f.Num == 1 && f.isVarint() {
			m.Number = uint32(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CmdSettingGetList lists setting numbers starting at Offset.
type CmdSettingGetList struct {
	Offset uint32 // field 1
}

func (m *CmdSettingGetList) Marshal() []byte {
	return appendVarint(nil, 1, uint64(m.Offset))
}

func unmarshalCmdSettingGetList(b []byte) (*CmdSettingGetList, error) {
	m := &CmdSettingGetList{}
	err := walk(b, func(f field) error {
		if f.Num == 1 && f.isVarint() {
			m.Offset = uint32(f.Varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
