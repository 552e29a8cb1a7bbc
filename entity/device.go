package entity

import (
	"context"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/support/logging"

	"github.com/pkg/errors"
)

// Device mirrors one node of a device (relay/switch) entry in the panel's
// device list. It shares its wire shape with Sensor but does not support
// enable/disable (a single protocol entity can expand into several Device
// instances for multi-channel relays, and toggling one cannot be reflected
// consistently across the others).
type Device struct {
	Sensor
}

func newDevice(t sensorReadTuple, protoIdx, subindex int) *Device {
	return &Device{Sensor: *newSensor(t, protoIdx, subindex)}
}

// TurnOn switches the device (relay) on.
func (d *Device) TurnOn(ctx context.Context, eng *command.Engine, addr PanelAddr) error {
	return d.control(ctx, eng, addr, 0)
}

// TurnOff switches the device (relay) off.
func (d *Device) TurnOff(ctx context.Context, eng *command.Engine, addr PanelAddr) error {
	return d.control(ctx, eng, addr, 1)
}

func (d *Device) control(ctx context.Context, eng *command.Engine, addr PanelAddr, state int) error {
	_, err := eng.Run(ctx, command.Request{
		Host: addr.Host, Port: addr.Port, Code: local.CodeControlDevice,
		Body: []int{d.PanelIndex, state, d.Subindex},
	})
	return errors.Wrap(err, "controlling device")
}

// SetEnabled shadows Sensor.SetEnabled: a single protocol entity can expand
// into multiple Device instances (multi-channel relays), so toggling one
// cannot be reflected consistently across the others. It logs and returns
// without contacting the panel.
func (d *Device) SetEnabled(ctx context.Context, eng *command.Engine, addr PanelAddr, privateData string, value bool, logger logging.L) error {
	logging.Must(logger).Warnf("manipulating enable/disable for device %q is unsupported", d.DisplayName())
	return nil
}

// Delete removes the device from the panel and marks it unavailable.
func (d *Device) Delete(ctx context.Context, eng *command.Engine, addr PanelAddr) error {
	if _, err := eng.Run(ctx, command.Request{Host: addr.Host, Port: addr.Port, Code: local.CodeDelDevice, Body: []int{d.PanelIndex}}); err != nil {
		return errors.Wrap(err, "deleting device")
	}
	d.SetUnavailable()
	return nil
}
