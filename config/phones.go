package config

import (
	"context"
	"encoding/json"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"
)

// AlarmPhones mirrors the fields of the GETALMPHONE/SETALMPHONE commands:
// the panel password, its own SIM number, up to six alarm-call numbers and
// two SMS-push numbers.
type AlarmPhones struct {
	PanelPassword    string
	PanelPhoneNumber string
	PhoneNumber1     string
	PhoneNumber2     string
	PhoneNumber3     string
	PhoneNumber4     string
	PhoneNumber5     string
	PhoneNumber6     string
	SMSPushNumber1   string
	SMSPushNumber2   string
}

// LoadAlarmPhones retrieves the panel's configured alarm phone numbers.
func LoadAlarmPhones(ctx context.Context, eng *command.Engine, host string, port int) (*AlarmPhones, error) {
	body, err := eng.Run(ctx, command.Request{Host: host, Port: port, Code: local.CodeGetAlmPhone})
	if err != nil {
		return nil, errors.Wrap(err, "loading alarm phone numbers")
	}

	var fields []string
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) < 10 {
		return nil, perrors.Newf(perrors.Framing, "malformed alarm phones response: %v", err)
	}

	return &AlarmPhones{
		PanelPassword:    fields[0],
		PanelPhoneNumber: fields[1],
		PhoneNumber1:     fields[2],
		PhoneNumber2:     fields[3],
		PhoneNumber3:     fields[4],
		PhoneNumber4:     fields[5],
		PhoneNumber5:     fields[6],
		PhoneNumber6:     fields[7],
		SMSPushNumber1:   fields[8],
		SMSPushNumber2:   fields[9],
	}, nil
}

// Save writes the phone numbers back to the panel.
func (p *AlarmPhones) Save(ctx context.Context, eng *command.Engine, host string, port int) error {
	fields := []interface{}{
		p.PanelPassword, p.PanelPhoneNumber, p.PhoneNumber1, p.PhoneNumber2,
		p.PhoneNumber3, p.PhoneNumber4, p.PhoneNumber5, p.PhoneNumber6,
		p.SMSPushNumber1, p.SMSPushNumber2,
	}
	if _, err := eng.Run(ctx, command.Request{Host: host, Port: port, Code: local.CodeSetAlmPhone, Body: fields}); err != nil {
		return errors.Wrap(err, "saving alarm phone numbers")
	}
	return nil
}
