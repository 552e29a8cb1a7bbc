package panel

import (
	"context"
	"time"

	"github.com/panelkit/panelctl/entity"
)

// DefaultRegistrationTimeout bounds how long Register* wait for the
// panel's confirmation before failing.
const DefaultRegistrationTimeout = 30 * time.Second

// GetSensors returns the cached sensor list, populating it on first call.
func (p *Panel) GetSensors(ctx context.Context) ([]*entity.Sensor, error) {
	return p.Sensors.Get(ctx)
}

// GetDevices returns the cached device list, populating it on first call.
func (p *Panel) GetDevices(ctx context.Context) ([]*entity.Device, error) {
	return p.Devices.Get(ctx)
}

// RegisterSensor adds a new sensor to the panel using a named peripheral
// definition and waits for the panel's confirmation.
func (p *Panel) RegisterSensor(ctx context.Context, definitionName, name string, roomID int) (*entity.Sensor, error) {
	return p.Sensors.Register(ctx, definitionName, roomID, name, DefaultRegistrationTimeout)
}

// RegisterDevice adds a new device (relay) to the panel using a named
// peripheral definition and waits for it to appear in the device list.
func (p *Panel) RegisterDevice(ctx context.Context, definitionName, name string, roomID int) (*entity.Device, error) {
	return p.Devices.Register(ctx, definitionName, roomID, name, DefaultRegistrationTimeout)
}

// DeleteSensor removes s from the panel.
func (p *Panel) DeleteSensor(ctx context.Context, s *entity.Sensor) error {
	return s.Delete(ctx, p.Engine, p.Addr)
}

// DeleteDevice removes d from the panel.
func (p *Panel) DeleteDevice(ctx context.Context, d *entity.Device) error {
	return d.Delete(ctx, p.Engine, p.Addr)
}

// TurnOnDevice switches d on.
func (p *Panel) TurnOnDevice(ctx context.Context, d *entity.Device) error {
	return d.TurnOn(ctx, p.Engine, p.Addr)
}

// TurnOffDevice switches d off.
func (p *Panel) TurnOffDevice(ctx context.Context, d *entity.Device) error {
	return d.TurnOff(ctx, p.Engine, p.Addr)
}
