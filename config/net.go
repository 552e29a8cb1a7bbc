package config

import (
	"context"
	"encoding/json"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"
	"github.com/panelkit/panelctl/support/logging"

	"github.com/pkg/errors"
)

// APNAuth is a cellular APN authentication method.
type APNAuth int

const (
	APNAuthNone      APNAuth = 0
	APNAuthPAP       APNAuth = 1
	APNAuthCHAP      APNAuth = 2
	APNAuthPAPOrCHAP APNAuth = 3
)

var apnAuthBounds = intBounds{min: int(APNAuthNone), max: int(APNAuthPAPOrCHAP)}

// NetConfig mirrors the fields of the GETAPINFO/SETAPINFO commands.
type NetConfig struct {
	APEnabled   bool
	APPassword  string
	WifiEnabled bool
	GPRSEnabled bool
	APNName     string
	APNUser     string
	APNPassword string
	APNAuth     APNAuth

	// GSMOperator is reported only by devices with a cellular module; it is
	// never sent back on Save regardless of whether it was present at load.
	GSMOperator *string
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *NetConfig) validate(logger logging.L, strict bool) error {
	checks := []error{
		intBounds{0, 1}.check("ap_enabled", boolToInt(c.APEnabled)),
		strBounds{9, 64}.check("ap_password", c.APPassword),
		intBounds{0, 1}.check("wifi_enabled", boolToInt(c.WifiEnabled)),
		intBounds{0, 1}.check("gprs_enabled", boolToInt(c.GPRSEnabled)),
		strBounds{1, 100}.check("apn_name", c.APNName),
		strBounds{0, 64}.check("apn_user", c.APNUser),
		strBounds{0, 64}.check("apn_password", c.APNPassword),
		apnAuthBounds.check("apn_auth", int(c.APNAuth)),
	}
	for _, err := range checks {
		if err == nil {
			continue
		}
		if strict {
			return err
		}
		trust(logger, err)
	}
	return nil
}

// LoadNetConfig retrieves the panel's network configuration.
func LoadNetConfig(ctx context.Context, eng *command.Engine, host string, port int, logger logging.L) (*NetConfig, error) {
	body, err := eng.Run(ctx, command.Request{Host: host, Port: port, Code: local.CodeGetAPInfo})
	if err != nil {
		return nil, errors.Wrap(err, "loading network configuration")
	}

	var fields []json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) < 8 {
		return nil, perrors.Newf(perrors.Framing, "malformed network configuration response: %v", err)
	}

	var apEnabled, wifiEnabled, gprsEnabled, apnAuth int
	c := &NetConfig{}
	dec := []interface{}{
		&apEnabled, &c.APPassword, &wifiEnabled, &gprsEnabled,
		&c.APNName, &c.APNUser, &c.APNPassword, &apnAuth,
	}
	for i, d := range dec {
		if err := json.Unmarshal(fields[i], d); err != nil {
			return nil, perrors.Newf(perrors.Framing, "malformed network configuration field %d: %v", i, err)
		}
	}
	c.APEnabled = apEnabled != 0
	c.WifiEnabled = wifiEnabled != 0
	c.GPRSEnabled = gprsEnabled != 0
	c.APNAuth = APNAuth(apnAuth)

	if len(fields) >= 9 {
		var v string
		if err := json.Unmarshal(fields[8], &v); err != nil {
			return nil, perrors.Newf(perrors.Framing, "malformed gsm_operator field: %v", err)
		}
		c.GSMOperator = &v
	}

	c.validate(logger, false)
	return c, nil
}

// Save validates and writes the configuration back to the panel. GSMOperator
// is never sent, regardless of whether it was present when loaded.
func (c *NetConfig) Save(ctx context.Context, eng *command.Engine, host string, port int) error {
	if err := c.validate(nil, true); err != nil {
		return err
	}

	fields := []interface{}{
		boolToInt(c.APEnabled), c.APPassword, boolToInt(c.WifiEnabled), boolToInt(c.GPRSEnabled),
		c.APNName, c.APNUser, c.APNPassword, int(c.APNAuth),
	}
	if _, err := eng.Run(ctx, command.Request{Host: host, Port: port, Code: local.CodeSetAPInfo, Body: fields}); err != nil {
		return errors.Wrap(err, "saving network configuration")
	}
	return nil
}
