package panel

import (
	"context"
	"net"
	"strconv"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/support/network"

	"github.com/pkg/errors"
)

// sendSystemFrame writes a single system-command frame to the panel's
// command port and does not wait for a reply: the panel neither sends nor
// is expected to send one for these.
func (p *Panel) sendSystemFrame(frame []byte) error {
	port := p.Addr.Port
	if port == 0 {
		port = command.DefaultPort
	}
	conn, err := network.DialCommandUDP4(&net.UDPAddr{IP: net.ParseIP(p.Addr.Host), Port: port}, 0)
	if err != nil {
		return errors.Wrap(err, "could not open system-command socket")
	}
	defer conn.Close()

	_, err = conn.Write(frame)
	return errors.Wrap(err, "could not send system-command datagram")
}

// MCUReboot reboots the panel's main control unit.
func (p *Panel) MCUReboot(context.Context) error {
	return p.sendSystemFrame(local.EncodeSystemCommand(local.SystemCommandMCUReboot, ""))
}

// GSMReboot reboots the panel's GSM module.
func (p *Panel) GSMReboot(context.Context) error {
	return p.sendSystemFrame(local.EncodeSystemCommand(local.SystemCommandGSMReboot, ""))
}

// WiFiReboot reboots the panel's Wi-Fi module.
func (p *Panel) WiFiReboot(context.Context) error {
	return p.sendSystemFrame(local.EncodeSystemCommand(local.SystemCommandWiFiReboot, ""))
}

// Reboot reboots every radio module in turn (GSM, then MCU, then Wi-Fi),
// mirroring the panel's own full-reboot sequence.
func (p *Panel) Reboot(ctx context.Context) error {
	if err := p.GSMReboot(ctx); err != nil {
		return err
	}
	if err := p.MCUReboot(ctx); err != nil {
		return err
	}
	return p.WiFiReboot(ctx)
}

// SetCloudServerAddress reconfigures the panel's cloud endpoint. The IP is
// duplicated across both address slots the panel accepts, since the
// second has never been observed in use as a distinct fallback.
func (p *Panel) SetCloudServerAddress(ctx context.Context, ip string, port int) error {
	return p.sendSystemFrame(local.EncodeSystemConfigCommand(
		local.SystemConfigServerAddress, ip, ip, strconv.Itoa(port),
	))
}
