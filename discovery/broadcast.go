package discovery

import (
	"context"
	"net"
	"time"

	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/support/logging"
	"github.com/panelkit/panelctl/support/network"

	"github.com/pkg/errors"
)

const (
	// BroadcastPort is the UDP port broadcast host-info queries are sent to.
	BroadcastPort = 12368

	// DefaultTimeout is the default listen window for broadcast discovery.
	DefaultTimeout = 10 * time.Second
)

// Result is a single panel observed by Discover.
type Result struct {
	Host     string
	Port     int
	GUID     string
	HostInfo HostInfo
}

// Options configures Discover.
type Options struct {
	// Host is the query's destination address. Defaults to the all-hosts
	// broadcast address; overridable for tests.
	Host string
	// Port is the query's destination port. Defaults to BroadcastPort.
	Port int

	// Timeout is how long to keep listening for replies after the query is
	// sent. Defaults to DefaultTimeout.
	Timeout time.Duration

	// LocalPort, if non-zero, binds the query socket to this local port.
	LocalPort int

	Logger logging.L
}

// Discover broadcasts a host-info query to 255.255.255.255:BroadcastPort and
// collects every well-formed reply received within Timeout. Unlike
// command.Engine.Run, which stops at the first reply, Discover is built to
// hear from many panels on the same segment.
//
// Malformed replies (framing errors, code mismatches) are logged and
// skipped; they do not abort the scan.
func Discover(ctx context.Context, opts Options) ([]Result, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := logging.Must(opts.Logger)

	frame, err := local.Encode(local.CodeHostInfo, local.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode host-info query")
	}

	host := opts.Host
	if host == "" {
		host = network.AllHostsMulticastIP4Address().String()
	}
	port := opts.Port
	if port == 0 {
		port = BroadcastPort
	}
	target := &net.UDPAddr{IP: net.ParseIP(host), Port: port}
	conn, err := network.DialCommandUDP4(target, opts.LocalPort)
	if err != nil {
		return nil, errors.Wrap(err, "could not open discovery socket")
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	if _, err := conn.Write(frame); err != nil {
		return nil, errors.Wrap(err, "could not send host-info query")
	}

	deadline := time.Now().Add(opts.Timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, errors.Wrap(err, "could not set read deadline")
	}

	var results []Result
	buf := make([]byte, network.MaxUDPSize)
	for {
		amt, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, ctxErr
			}
			return results, errors.Wrap(err, "error reading discovery reply")
		}

		body, err := local.DecodeExpect(buf[:amt], local.CodeHostInfo)
		if err != nil {
			logger.Warnf("discovery: ignoring malformed reply from %s: %s", from, err)
			continue
		}
		hostInfo, err := ParseHostInfo(body)
		if err != nil {
			logger.Warnf("discovery: ignoring unparseable host-info from %s: %s", from, err)
			continue
		}

		results = append(results, Result{
			Host: from.IP.String(), Port: from.Port,
			GUID: hostInfo.GUID, HostInfo: hostInfo,
		})
	}

	return results, nil
}

