package discovery

import (
	"encoding/json"

	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"
)

// HostInfo is the panel's static host-info tuple, as returned by
// CodeHostInfo: guid, product name, two version strings, two protocol-code
// strings, GSM/WiFi signal indicators, two reserved fields, a phone number
// and two more reserved fields.
type HostInfo struct {
	GUID            string
	Product         string
	HardwareVersion string
	SoftwareVersion string
	CodeA           string
	CodeB           string
	GSMSignal       int
	WiFiSignal      int
	Reserved1       int
	Reserved2       int
	Phone           string
	Reserved3       int
	Reserved4       int
}

// ParseHostInfo decodes a CodeHostInfo response body (a flat JSON tuple)
// into a HostInfo.
func ParseHostInfo(body json.RawMessage) (HostInfo, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return HostInfo{}, perrors.Wrap(perrors.Framing, err, "could not parse host-info tuple")
	}
	if len(raw) != 13 {
		return HostInfo{}, perrors.Newf(perrors.Framing, "expected a 13-element host-info tuple, got %d elements", len(raw))
	}

	var hi HostInfo
	fields := []struct {
		dst interface{}
	}{
		{&hi.GUID}, {&hi.Product}, {&hi.HardwareVersion}, {&hi.SoftwareVersion},
		{&hi.CodeA}, {&hi.CodeB}, {&hi.GSMSignal}, {&hi.WiFiSignal},
		{&hi.Reserved1}, {&hi.Reserved2}, {&hi.Phone}, {&hi.Reserved3}, {&hi.Reserved4},
	}
	for i, f := range fields {
		if err := json.Unmarshal(raw[i], f.dst); err != nil {
			return HostInfo{}, errors.Wrapf(err, "could not parse host-info field %d", i)
		}
	}
	return hi, nil
}
