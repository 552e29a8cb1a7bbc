package panel

import (
	"context"
	"encoding/json"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/discovery"
	"github.com/panelkit/panelctl/notify"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"
)

// HostInfo fetches the panel's static host-info tuple.
func (p *Panel) HostInfo(ctx context.Context) (discovery.HostInfo, error) {
	body, err := p.Engine.Run(ctx, command.Request{Host: p.Addr.Host, Port: p.Addr.Port, Code: local.CodeHostInfo, Body: local.NoBody})
	if err != nil {
		return discovery.HostInfo{}, errors.Wrap(err, "fetching host info")
	}
	return discovery.ParseHostInfo(body)
}

// HostStatus is the panel's current arm/disarm state plus static host
// identity fields returned alongside it.
type HostStatus struct {
	State           int
	PhoneNumber     string
	ProductName     string
	MCUHWVersion    string
	WiFiHWVersion   string
}

// HostStatus fetches the panel's current arm/disarm state.
func (p *Panel) HostStatus(ctx context.Context) (HostStatus, error) {
	body, err := p.Engine.Run(ctx, command.Request{Host: p.Addr.Host, Port: p.Addr.Port, Code: local.CodeGetHostStatus, Body: local.NoBody})
	if err != nil {
		return HostStatus{}, errors.Wrap(err, "fetching host status")
	}

	var hs HostStatus
	err = json.Unmarshal(body, &[]interface{}{
		&hs.State, &hs.PhoneNumber, &hs.ProductName, &hs.MCUHWVersion, &hs.WiFiHWVersion,
	})
	if err != nil {
		return HostStatus{}, perrors.Newf(perrors.Framing, "malformed host-status tuple: %v", err)
	}
	return hs, nil
}

// UserDataCRC is the panel's on-device database checksums, as returned by
// CodeGetUserDataCRC.
type UserDataCRC struct {
	SensorList      string
	DeviceList      string
	HistoryList     string
	SceneList       string
	IFTTTList       string
	FingerprintList string
}

// UserDataCRC fetches the panel's current database checksums.
func (p *Panel) UserDataCRC(ctx context.Context) (UserDataCRC, error) {
	body, err := p.Engine.Run(ctx, command.Request{Host: p.Addr.Host, Port: p.Addr.Port, Code: local.CodeGetUserDataCRC, Body: local.NoBody})
	if err != nil {
		return UserDataCRC{}, errors.Wrap(err, "fetching user data CRCs")
	}

	var crc UserDataCRC
	err = json.Unmarshal(body, &[]interface{}{
		&crc.SensorList, &crc.DeviceList, &crc.HistoryList,
		&crc.SceneList, &crc.IFTTTList, &crc.FingerprintList,
	})
	if err != nil {
		return UserDataCRC{}, perrors.Newf(perrors.Framing, "malformed user-data-crc tuple: %v", err)
	}
	return crc, nil
}

func (p *Panel) setHostStatus(ctx context.Context, state int) error {
	_, err := p.Engine.Run(ctx, command.Request{Host: p.Addr.Host, Port: p.Addr.Port, Code: local.CodeSetHostStatus, Body: []interface{}{int(local.CodeSetHostStatus), []int{state}}})
	return errors.Wrap(err, "setting host status")
}

// ArmAway arms the panel in away mode.
func (p *Panel) ArmAway(ctx context.Context) error { return p.setHostStatus(ctx, notify.StateArmAway) }

// ArmHome arms the panel in home mode.
func (p *Panel) ArmHome(ctx context.Context) error { return p.setHostStatus(ctx, notify.StateArmHome) }

// Disarm disarms the panel.
func (p *Panel) Disarm(ctx context.Context) error { return p.setHostStatus(ctx, notify.StateDisarm) }
