package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/panelkit/panelctl/protocol/perrors"
	"github.com/panelkit/panelctl/support/logging"
	"github.com/panelkit/panelctl/support/network"

	"github.com/pkg/errors"
)

const (
	// TargetedProbePort is the UDP port targeted GUID probes are sent to.
	TargetedProbePort = 12900

	// TargetedReplyPort is the local port targeted probe replies are
	// expected to arrive on.
	TargetedReplyPort = 12901

	probeAckPrefix = "IWTAC_PROBE_DEVICE_ACK,"
)

// TargetedResult is a single panel's reply to a TargetedDiscover probe.
type TargetedResult struct {
	Host   string
	Port   int
	Fields []string // comma-separated fields following the ACK prefix
}

// TargetedOptions configures TargetedDiscover.
type TargetedOptions struct {
	// Host and Port are the probe's destination. Default to the all-hosts
	// broadcast address and TargetedProbePort; overridable for tests.
	Host string
	Port int
	// LocalPort is the local port the reply is expected on. Defaults to
	// TargetedReplyPort.
	LocalPort int

	Timeout time.Duration
	Logger  logging.L
}

// TargetedDiscover probes for a single panel by GUID, using the panel's
// dedicated ASCII discovery protocol (distinct from the JSON command
// envelope used elsewhere): a zero-terminated, comma-separated request to
// UDP port TargetedProbePort, replied to from local port TargetedReplyPort.
//
// Replies that do not begin with the expected ACK prefix are logged and
// ignored rather than treated as fatal, since the probe port may be shared
// with unrelated broadcast traffic.
func TargetedDiscover(ctx context.Context, guid string, opts TargetedOptions) (TargetedResult, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := logging.Must(opts.Logger)

	host := opts.Host
	if host == "" {
		host = network.AllHostsMulticastIP4Address().String()
	}
	port := opts.Port
	if port == 0 {
		port = TargetedProbePort
	}
	localPort := opts.LocalPort
	if localPort == 0 {
		localPort = TargetedReplyPort
	}
	target := &net.UDPAddr{IP: net.ParseIP(host), Port: port}
	conn, err := network.DialCommandUDP4(target, localPort)
	if err != nil {
		return TargetedResult{}, errors.Wrap(err, "could not open targeted discovery socket")
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	request := []byte(fmt.Sprintf("IWTAC_PROBE_DEVICE,%s\x00", guid))
	if _, err := conn.Write(request); err != nil {
		return TargetedResult{}, errors.Wrap(err, "could not send targeted probe")
	}

	deadline := time.Now().Add(opts.Timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return TargetedResult{}, errors.Wrap(err, "could not set read deadline")
	}

	buf := make([]byte, network.MaxUDPSize)
	for {
		amt, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return TargetedResult{}, perrors.Newf(perrors.Timeout, "no ack for guid %q within %s", guid, opts.Timeout)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return TargetedResult{}, ctxErr
			}
			return TargetedResult{}, errors.Wrap(err, "error reading targeted probe reply")
		}

		text := string(bytes.TrimRight(buf[:amt], "\x00"))
		if !strings.HasPrefix(text, probeAckPrefix) {
			logger.Warnf("targeted discovery: ignoring malformed reply from %s: %q", from, text)
			continue
		}

		fields := strings.Split(strings.TrimPrefix(text, probeAckPrefix), ",")
		return TargetedResult{Host: from.IP.String(), Port: from.Port, Fields: fields}, nil
	}
}
