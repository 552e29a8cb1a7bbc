// Package command implements the local UDP command engine (exchange with
// retry/timeout, response correlation and address verification) and the
// paginated command helper built on top of it.
package command

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"
	"github.com/panelkit/panelctl/support/fmtutil"
	"github.com/panelkit/panelctl/support/logging"
	"github.com/panelkit/panelctl/support/network"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultPort is the panel's default local command UDP port.
	DefaultPort = 12368

	// NoCode is a reserved code that marks a request carrying no command
	// code; invoking Engine.Run with it is an error.
	NoCode = local.Code(-1)

	// DefaultTimeout is the default per-attempt timeout.
	DefaultTimeout = 3 * time.Second

	// DefaultRetries is the default number of attempts (including the first).
	DefaultRetries = 3
)

// Request describes a single local command invocation.
type Request struct {
	// Host is the panel's address, or the broadcast address
	// (255.255.255.255) for discovery-like uses.
	Host string
	// Port is the panel's UDP command port. Defaults to DefaultPort.
	Port int

	// Code is the command code. Must not be NoCode.
	Code local.Code
	// Body is marshaled as the request's body; see local.Encode.
	Body interface{}

	// Timeout is the per-attempt wait for a reply. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retries is the total number of attempts. Defaults to DefaultRetries.
	Retries int

	// LocalPort, if non-zero, binds the outbound socket to this local port.
	LocalPort int
}

func (r *Request) applyDefaults() {
	if r.Port == 0 {
		r.Port = DefaultPort
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	if r.Retries <= 0 {
		r.Retries = DefaultRetries
	}
}

// Engine runs local commands against a panel.
//
// All concurrent calls to Run on the same Engine are serialized around a
// single send/wait critical section: this prevents a reply to one command
// from being misattributed to another in-flight command sharing the
// process. The socket used for each attempt is private to that command.
//
// Engine is safe for concurrent use.
type Engine struct {
	// Logger, if not nil, is used to log each attempt and each datagram
	// received. An attempt reads a single reply and then closes its socket,
	// so datagrams arriving after that are neither read nor logged.
	Logger logging.L

	// mu serializes the send-and-wait window across all commands run through
	// this Engine.
	mu sync.Mutex
}

// Run executes req, returning its decoded response body.
func (e *Engine) Run(ctx context.Context, req Request) (json.RawMessage, error) {
	req.applyDefaults()
	if req.Code == NoCode {
		return nil, errors.New("command: NoCode cannot be run through the generic Engine")
	}

	logger := logging.Must(e.Logger)
	correlationID := uuid.New()

	frame, err := local.Encode(req.Code, req.Body)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode request")
	}

	target := &net.UDPAddr{IP: net.ParseIP(req.Host), Port: req.Port}
	isBroadcast := target.IP.Equal(network.AllHostsMulticastIP4Address())

	e.mu.Lock()
	defer e.mu.Unlock()

	commandRunsTotal.WithLabelValues(codeLabel(req.Code)).Inc()

	var lastErr error
	for attempt := 0; attempt < req.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Debugf("[%s] sending code=%d attempt=%d/%d to %s:%d",
			correlationID, req.Code, attempt+1, req.Retries, req.Host, req.Port)

		body, err := e.runAttempt(ctx, target, req, frame, isBroadcast, logger, correlationID.String())
		switch {
		case err == nil:
			commandRetriesTotal.WithLabelValues(codeLabel(req.Code)).Add(float64(attempt))
			return body, nil

		case errors.Is(err, perrors.Mismatch):
			// Terminal: a wrong-code or wrong-address reply is not retried.
			return nil, err

		default:
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = perrors.Newf(perrors.Timeout, "no response to code %d after %d attempt(s)", req.Code, req.Retries)
	}
	return nil, lastErr
}

func (e *Engine) runAttempt(
	ctx context.Context,
	target *net.UDPAddr,
	req Request,
	frame []byte,
	isBroadcast bool,
	logger logging.L,
	correlationID string,
) (json.RawMessage, error) {
	conn, err := network.DialCommandUDP4(target, req.LocalPort)
	if err != nil {
		return nil, errors.Wrap(err, "could not open command socket")
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	if _, err := conn.Write(frame); err != nil {
		return nil, errors.Wrap(err, "could not send command datagram")
	}

	deadline := time.Now().Add(req.Timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, errors.Wrap(err, "could not set read deadline")
	}

	buf := make([]byte, network.MaxUDPSize)
	amt, from, err := conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, perrors.New(perrors.Timeout, "no reply within timeout")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "error reading command response")
	}

	data := buf[:amt]
	logger.Debugf("[%s] received %d byte(s) from %s:\n%s", correlationID, amt, from, fmtutil.Hex(data))

	if !isBroadcast && !from.IP.Equal(target.IP) {
		return nil, perrors.Newf(perrors.Mismatch, "reply from unexpected host %s (wanted %s)", from.IP, target.IP)
	}
	if from.Port != target.Port {
		return nil, perrors.Newf(perrors.Mismatch, "reply from unexpected port %d (wanted %d)", from.Port, target.Port)
	}

	return local.DecodeExpect(data, req.Code)
}

func codeLabel(c local.Code) string {
	return strconv.Itoa(int(c))
}

var (
	commandRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panelctl_command_runs_total",
		Help: "Count of local commands run, by code.",
	}, []string{"code"})

	commandRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panelctl_command_retries_total",
		Help: "Count of local command retry attempts consumed before success, by code.",
	}, []string{"code"})
)

// RegisterMonitoring registers this package's Prometheus collectors.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(commandRunsTotal, commandRetriesTotal)
}
