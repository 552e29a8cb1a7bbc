package cloudserver

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/panelkit/panelctl/protocol/cloud"
	"github.com/panelkit/panelctl/support/logging"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch is invoked for each frame received from a panel when the Server
// is terminating the connection locally (no Upstream configured). identity
// is the panel's connection identity (see Server.identityOf). Dispatch may
// return a reply message to be sent back on the same connection, or nil to
// send nothing.
type Dispatch func(identity string, frame cloud.Frame) (cloud.Message, error)

// Server accepts panel cloud-protocol TCP connections.
//
// For every identity, at most one connection is kept active: a reconnect
// evicts (closes) the previous connection for that identity, matching the
// panel's own expectation of a single live cloud session.
type Server struct {
	// Addr is the TCP address to listen on, e.g. ":15111".
	Addr string

	// Upstream, if set, causes every accepted connection to be transparently
	// relayed byte-for-byte to this address instead of being decoded and
	// answered locally.
	Upstream string

	// OnDispatch handles decoded frames when Upstream is unset.
	OnDispatch Dispatch

	Logger logging.L

	mu    sync.Mutex
	conns map[string]net.Conn

	ln net.Listener
}

// ListenAndServe listens on Addr and serves connections until ctx is
// cancelled or a fatal accept error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return errors.Wrapf(err, "could not listen on %s", s.Addr)
	}
	s.ln = ln
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	logger := logging.Must(s.Logger)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return errors.Wrap(err, "accept failed")
		}
		activeConnections.Inc()
		go s.serve(ctx, conn, logger)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn, logger logging.L) {
	defer activeConnections.Dec()
	defer conn.Close()

	identity := s.identityOf(conn)
	evict := s.register(identity, conn)
	defer evict()

	if s.Upstream != "" {
		s.relay(ctx, conn, logger)
		return
	}
	s.serveLocal(ctx, conn, logger)
}

// identityOf derives a connection identity. The cloud handshake (see
// protocol/cloud) does not itself carry a device GUID in this
// implementation, so the remote IP stands in for panel identity; a
// deployment that needs finer granularity can extend Dispatch to
// re-key on a GUID learned from a later frame.
func (s *Server) identityOf(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

func (s *Server) register(identity string, conn net.Conn) (evict func()) {
	s.mu.Lock()
	if s.conns == nil {
		s.conns = make(map[string]net.Conn)
	}
	if prev, ok := s.conns[identity]; ok {
		_ = prev.Close()
		connectionsEvictedTotal.Inc()
	}
	s.conns[identity] = conn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if s.conns[identity] == conn {
			delete(s.conns, identity)
		}
		s.mu.Unlock()
	}
}

func (s *Server) relay(ctx context.Context, conn net.Conn, logger logging.L) {
	upstream, err := net.Dial("tcp", s.Upstream)
	if err != nil {
		logger.Warnf("cloudserver: could not dial upstream %s: %s", s.Upstream, err)
		return
	}
	defer upstream.Close()

	go func() {
		<-ctx.Done()
		_ = upstream.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(upstream, conn)
		_ = upstream.Close()
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(conn, upstream)
		_ = conn.Close()
	}()
	wg.Wait()
}

func (s *Server) serveLocal(ctx context.Context, conn net.Conn, logger logging.L) {
	identity := s.identityOf(conn)
	var seq uint16

	for {
		if ctx.Err() != nil {
			return
		}

		frame, _, err := cloud.ReadFrame(conn)
		if err != nil {
			if err != io.EOF {
				logger.Debugf("cloudserver: connection from %s closed: %s", identity, err)
			}
			return
		}
		framesReceivedTotal.Inc()

		if s.OnDispatch == nil {
			continue
		}
		reply, err := s.OnDispatch(identity, frame)
		if err != nil {
			logger.Warnf("cloudserver: dispatch error for %s: %s", identity, err)
			continue
		}
		if reply == nil {
			continue
		}

		seq++
		out, err := cloud.Encode(reply, seq)
		if err != nil {
			logger.Warnf("cloudserver: could not encode reply for %s: %s", identity, err)
			continue
		}
		if _, err := conn.Write(out); err != nil {
			logger.Warnf("cloudserver: could not write reply to %s: %s", identity, err)
			return
		}
	}
}

var (
	activeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "panelctl_cloudserver_active_connections",
		Help: "Current number of accepted cloud-protocol connections.",
	})
	connectionsEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panelctl_cloudserver_connections_evicted_total",
		Help: "Count of connections closed because a new connection claimed the same identity.",
	})
	framesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panelctl_cloudserver_frames_received_total",
		Help: "Count of cloud-protocol frames received across all connections.",
	})
)

// RegisterMonitoring registers this package's Prometheus collectors.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(activeConnections, connectionsEvictedTotal, framesReceivedTotal)
}
