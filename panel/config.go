package panel

import (
	"context"

	"github.com/panelkit/panelctl/config"
)

// HostConfig fetches the panel's host configuration record.
func (p *Panel) HostConfig(ctx context.Context) (*config.HostConfig, error) {
	return config.LoadHostConfig(ctx, p.Engine, p.Addr.Host, p.Addr.Port, p.logger)
}

// NetConfig fetches the panel's network (Wi-Fi/GPRS) configuration record.
func (p *Panel) NetConfig(ctx context.Context) (*config.NetConfig, error) {
	return config.LoadNetConfig(ctx, p.Engine, p.Addr.Host, p.Addr.Port, p.logger)
}

// AlarmPhones fetches the panel's alarm phone-number record.
func (p *Panel) AlarmPhones(ctx context.Context) (*config.AlarmPhones, error) {
	return config.LoadAlarmPhones(ctx, p.Engine, p.Addr.Host, p.Addr.Port)
}

// AlertFlags returns the panel's current alert-configuration bitmask,
// cached after the first read.
func (p *Panel) AlertFlags(ctx context.Context) (config.AlertFlag, error) {
	return p.Alerts.Flags(ctx)
}

// SetAlertFlags overwrites the panel's alert-configuration bitmask.
func (p *Panel) SetAlertFlags(ctx context.Context, flags config.AlertFlag) error {
	return p.Alerts.Set(ctx, flags)
}

// AlertFlag reports whether a single alert-configuration flag is set.
func (p *Panel) AlertFlag(ctx context.Context, flag config.AlertFlag) (bool, error) {
	return p.Alerts.GetFlag(ctx, flag)
}

// SetAlertFlag flips a single alert-configuration flag, leaving the rest
// of the bitmask untouched.
func (p *Panel) SetAlertFlag(ctx context.Context, flag config.AlertFlag, value bool) error {
	return p.Alerts.SetFlag(ctx, flag, value)
}
