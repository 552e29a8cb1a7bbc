package config

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"
	"github.com/panelkit/panelctl/support/logging"

	"github.com/pkg/errors"
)

// AlertFlag is the panel's alert-configuration bitmask.
type AlertFlag int

const (
	FlagACPowerFailure   AlertFlag = 1
	FlagACPowerRecover   AlertFlag = 2
	FlagArmDisarm        AlertFlag = 4
	FlagHostLowVoltage   AlertFlag = 8
	FlagSensorLowVoltage AlertFlag = 16
	FlagWifiAvailable    AlertFlag = 32
	FlagWifiUnavailable  AlertFlag = 64
	FlagDoorOpen         AlertFlag = 128
	FlagDoorClose        AlertFlag = 256
	FlagSMSPush          AlertFlag = 512
	FlagUnknown1         AlertFlag = 2048
	FlagUnknown2         AlertFlag = 8192
)

// AlertConfig is the panel's alert-notification configuration: a single
// bitmask, gettable/settable as a whole or flag-by-flag. The value is
// cached on first read; Set always re-reads uncached to detect and warn
// about external modification before overwriting.
type AlertConfig struct {
	Engine *command.Engine
	Host   string
	Port   int
	Logger logging.L

	mu     sync.Mutex
	cached *AlertFlag
}

func (c *AlertConfig) readUncached(ctx context.Context) (AlertFlag, error) {
	body, err := c.Engine.Run(ctx, command.Request{
		Host: c.Host, Port: c.Port, Code: local.CodeGetNoticeFlag,
	})
	if err != nil {
		return 0, errors.Wrap(err, "reading alert configuration")
	}
	var fields []int
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) < 1 {
		return 0, perrors.Newf(perrors.Framing, "malformed alert configuration response: %v", err)
	}
	return AlertFlag(fields[0]), nil
}

// Flags returns the alert-configuration bitmask, reading it from the panel
// on first call and returning the cached value thereafter.
func (c *AlertConfig) Flags(ctx context.Context) (AlertFlag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil {
		flags, err := c.readUncached(ctx)
		if err != nil {
			return 0, err
		}
		c.cached = &flags
	}
	return *c.cached, nil
}

// Set writes flags to the panel as the new alert configuration. The current
// value is re-read uncached first; if it disagrees with the last cached
// value, a warning is logged noting the configuration changed externally
// before it is overwritten.
func (c *AlertConfig) Set(ctx context.Context, flags AlertFlag) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.readUncached(ctx)
	if err != nil {
		return err
	}
	if c.cached != nil && current != *c.cached {
		logging.Must(c.Logger).Warnf(
			"config: alert configuration changed externally, overwriting (read %v, will be set to %v)",
			current, flags)
	}

	if _, err := c.Engine.Run(ctx, command.Request{
		Host: c.Host, Port: c.Port, Code: local.CodeSetNoticeFlag, Body: []int{int(flags)},
	}); err != nil {
		return errors.Wrap(err, "setting alert configuration")
	}
	c.cached = &flags
	return nil
}

// GetFlag reports whether a single flag is currently set.
func (c *AlertConfig) GetFlag(ctx context.Context, flag AlertFlag) (bool, error) {
	flags, err := c.Flags(ctx)
	if err != nil {
		return false, err
	}
	return flags&flag != 0, nil
}

// SetFlag sets or clears a single flag, leaving all others untouched. A
// no-op if the flag already has the desired value.
func (c *AlertConfig) SetFlag(ctx context.Context, flag AlertFlag, value bool) error {
	current, err := c.GetFlag(ctx, flag)
	if err != nil {
		return err
	}
	if current == value {
		return nil
	}

	c.mu.Lock()
	flags := *c.cached
	c.mu.Unlock()

	if value {
		flags |= flag
	} else {
		flags &^= flag
	}
	return c.Set(ctx, flags)
}
