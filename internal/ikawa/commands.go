package ikawa

import (
	"context"
	"fmt"
	"time"

	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

// Info identifies the roaster.
type Info struct {
	BootloaderVersion  uint32
	BootloaderRevision string
	Type               ikawapb.MachType
	Variant            ikawapb.MachVariant
	ID                 string
}

// Bootloader formats the bootloader version as "version.revision".
func (i Info) Bootloader() string {
	return fmt.Sprintf("%d.%s", i.BootloaderVersion, i.BootloaderRevision)
}

// Machine formats the machine type as "VARIANT TYPE", e.g. "V2 HOME".
func (i Info) Machine() string {
	return fmt.Sprintf("%s %s", i.Variant, i.Type)
}

// Info fetches the bootloader version, machine type and machine ID.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info

	resp, err := c.SendCommand(ctx, &ikawapb.Cmd{CmdType: ikawapb.BootloaderGetVersion})
	if err != nil {
		return info, err
	}
	if v := resp.BootloaderGetVersion; v != nil {
		info.BootloaderVersion = v.Version
		info.BootloaderRevision = v.Revision
	}

	resp, err = c.SendCommand(ctx, &ikawapb.Cmd{CmdType: ikawapb.MachPropGetType})
	if err != nil {
		return info, err
	}
	if t := resp.MachPropType; t != nil {
		info.Type = t.Type
		info.Variant = t.Variant
	}

	resp, err = c.SendCommand(ctx, &ikawapb.Cmd{CmdType: ikawapb.MachPropGetID})
	if err != nil {
		return info, err
	}
	if id := resp.MachID; id != nil {
		info.ID = id.ID
	}
	return info, nil
}

// Setting is one named roaster setting. Value holds a uint32 or, for FLOAT
// settings, a float32.
type Setting struct {
	Number uint32
	Name   string
	Type   ikawapb.SettingType
	Value  any
}

// Settings lists every setting with its current value, in the order the
// roaster reports them.
func (c *Client) Settings(ctx context.Context) ([]Setting, error) {
	resp, err := c.SendCommand(ctx, &ikawapb.Cmd{
		CmdType:        ikawapb.SettingGetList,
		SettingGetList: &ikawapb.CmdSettingGetList{Offset: 0},
	})
	if err != nil {
		return nil, err
	}
	if resp.SettingGetList == nil {
		return nil, nil
	}

	settings := make([]Setting, 0, len(resp.SettingGetList.Number))
	for _, n := range resp.SettingGetList.Number {
		resp, err := c.SendCommand(ctx, &ikawapb.Cmd{
			CmdType:        ikawapb.SettingGetInfo,
			SettingGetInfo: &ikawapb.CmdSettingGetInfo{Number: n},
		})
		if err != nil {
			return settings, err
		}
		s := Setting{Number: n}
		if info := resp.SettingGetInfo; info != nil {
			s.Name = info.Name
			s.Type = info.Type
		}

		resp, err = c.SendCommand(ctx, &ikawapb.Cmd{
			CmdType:    ikawapb.SettingGet,
			SettingGet: &ikawapb.CmdSettingGet{Number: n},
		})
		if err != nil {
			return settings, err
		}
		val := resp.SettingGet
		if val == nil {
			val = &ikawapb.RespSettingGet{Number: n}
		}
		if s.Type == ikawapb.SettingFloat {
			s.Value = val.Float32()
		} else {
			s.Value = val.ValU32
		}
		settings = append(settings, s)
	}
	return settings, nil
}

// Profile fetches the roast profile loaded on the roaster.
func (c *Client) Profile(ctx context.Context) (*ikawapb.RoastProfile, error) {
	resp, err := c.SendCommand(ctx, &ikawapb.Cmd{CmdType: ikawapb.ProfileGet})
	if err != nil {
		return nil, err
	}
	if resp.ProfileGet == nil || resp.ProfileGet.Profile == nil {
		return &ikawapb.RoastProfile{}, nil
	}
	return resp.ProfileGet.Profile, nil
}

// SetProfile installs p on the roaster. It fails with ErrDeviceStatus unless
// the roaster answers OK.
func (c *Client) SetProfile(ctx context.Context, p *ikawapb.RoastProfile) error {
	resp, err := c.SendCommand(ctx, &ikawapb.Cmd{
		CmdType:    ikawapb.ProfileSet,
		ProfileSet: &ikawapb.CmdProfileSet{Profile: p},
	})
	if err != nil {
		return err
	}
	if resp.Resp != ikawapb.RespOK {
		return fmt.Errorf("%w: set profile: %s", ErrDeviceStatus, resp.Resp)
	}
	return nil
}

// Status samples every sensor once. retryTimeout bounds the request; the
// status loop uses a short one so a lost reply costs little.
func (c *Client) Status(ctx context.Context, retryTimeout time.Duration) (*ikawapb.RespMachStatusGetAll, error) {
	resp, err := c.SendCommandTimeout(ctx, &ikawapb.Cmd{CmdType: ikawapb.MachStatusGetAll}, retryTimeout)
	if err != nil {
		return nil, err
	}
	if resp.MachStatusGetAll == nil {
		return &ikawapb.RespMachStatusGetAll{}, nil
	}
	return resp.MachStatusGetAll, nil
}
