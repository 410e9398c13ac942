package ikawapb

import "fmt"

// CmdType selects the operation a Cmd asks the roaster to perform.
type CmdType uint32

const (
	BootloaderGetVersion CmdType = 0
	MachPropGetType      CmdType = 1
	MachPropGetID        CmdType = 2
	MachStatusGetError   CmdType = 3
	MachStatusGetAll     CmdType = 4
	ProfileGet           CmdType = 5
	ProfileSet           CmdType = 6
	SettingGet           CmdType = 7
	SettingSet           CmdType = 8
	SettingGetInfo       CmdType = 9
	SettingGetList       CmdType = 10
)

var cmdTypeNames = map[CmdType]string{
	BootloaderGetVersion: "BOOTLOADER_GET_VERSION",
	MachPropGetType:      "MACH_PROP_GET_TYPE",
	MachPropGetID:        "MACH_PROP_GET_ID",
	MachStatusGetError:   "MACH_STATUS_GET_ERROR",
	MachStatusGetAll:     "MACH_STATUS_GET_ALL",
	ProfileGet:           "PROFILE_GET",
	ProfileSet:           "PROFILE_SET",
	SettingGet:           "SETTING_GET",
	SettingSet:           "SETTING_SET",
	SettingGetInfo:       "SETTING_GET_INFO",
	SettingGetList:       "SETTING_GET_LIST",
}

func (t CmdType) String() string { return enumName(cmdTypeNames, t) }

// RespStatus is the device-reported outcome of a command.
type RespStatus uint32

const (
	RespUnknown RespStatus = 0
	RespOK      RespStatus = 1
	RespError   RespStatus = 2
)

var respStatusNames = map[RespStatus]string{
	RespUnknown: "UNKNOWN",
	RespOK:      "OK",
	RespError:   "ERROR",
}

func (s RespStatus) String() string { return enumName(respStatusNames, s) }

// MachState is the roaster's state machine position.
type MachState uint32

const (
	StateIdle          MachState = 0
	StatePreHeating    MachState = 1
	StateReadyForRoast MachState = 2
	StateRoasting      MachState = 3
	StateBusy          MachState = 4
	StateCooldown      MachState = 5
	StateOpen          MachState = 6
	StateError         MachState = 7
)

var machStateNames = map[MachState]string{
	StateIdle:          "IDLE",
	StatePreHeating:    "PRE_HEATING",
	StateReadyForRoast: "READY_FOR_ROAST",
	StateRoasting:      "ROASTING",
	StateBusy:          "BUSY",
	StateCooldown:      "COOLDOWN",
	StateOpen:          "OPEN",
	StateError:         "ERROR",
}

func (s MachState) String() string { return enumName(machStateNames, s) }

// MachType identifies the roaster model.
type MachType uint32

const (
	MachTypeUnknown MachType = 0
	MachTypeHome    MachType = 1
	MachTypePro     MachType = 2
)

var machTypeNames = map[MachType]string{
	MachTypeUnknown: "UNKNOWN",
	MachTypeHome:    "HOME",
	MachTypePro:     "PRO",
}

func (t MachType) String() string { return enumName(machTypeNames, t) }

// MachVariant identifies the hardware revision within a model.
type MachVariant uint32

const (
	VariantUnknown MachVariant = 0
	VariantV1      MachVariant = 1
	VariantV2      MachVariant = 2
	VariantV3      MachVariant = 3
)

var machVariantNames = map[MachVariant]string{
	VariantUnknown: "UNKNOWN",
	VariantV1:      "V1",
	VariantV2:      "V2",
	VariantV3:      "V3",
}

func (v MachVariant) String() string { return enumName(machVariantNames, v) }

// SettingType tells how a setting's 32-bit value is interpreted.
type SettingType uint32

const (
	SettingU32   SettingType = 0
	SettingFloat SettingType = 1
)

var settingTypeNames = map[SettingType]string{
	SettingU32:   "U32",
	SettingFloat: "FLOAT",
}

func (t SettingType) String() string { return enumName(settingTypeNames, t) }

// TempSensor selects which probe a profile's temperature curve tracks.
type TempSensor uint32

const (
	TempSensorAboveBeans TempSensor = 0
	TempSensorBelowBeans TempSensor = 1
)

var tempSensorNames = map[TempSensor]string{
	TempSensorAboveBeans: "ABOVE_BEANS",
	TempSensorBelowBeans: "BELOW_BEANS",
}

func (s TempSensor) String() string { return enumName(tempSensorNames, s) }

// ParseTempSensor maps a sensor name (as printed by String) to its value.
func ParseTempSensor(name string) (TempSensor, error) {
	for v, n := range tempSensorNames {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("ikawapb: unknown temp sensor %q", name)
}

func enumName[E ~uint32](names map[E]string, v E) string {
	if n, ok := names[v]; ok {
		return n
	}
	return fmt.Sprintf("%d", uint32(v))
}
