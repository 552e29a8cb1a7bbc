package notify

import (
	"context"
	"net"
	"time"

	"github.com/panelkit/panelctl/support/network"
)

// DefaultPort is the default local port notifications/alerts are received
// on.
const DefaultPort = 12901

// Listener reads local-notification datagrams from a UDP socket and feeds
// them to a Dispatcher, one at a time, in arrival order.
type Listener struct {
	Dispatcher *Dispatcher

	conn  *net.UDPConn
	doneC chan struct{}
}

// Start binds a UDP socket on port (DefaultPort if zero) and begins
// reading. It returns once the socket is bound; processing continues on a
// background goroutine until ctx is cancelled or Stop is called.
func (l *Listener) Start(ctx context.Context, port int) error {
	if port == 0 {
		port = DefaultPort
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return err
	}
	l.conn = conn
	l.doneC = make(chan struct{})

	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	go l.run(ctx)
	return nil
}

// Stop closes the listener's socket and waits for its read loop to exit.
func (l *Listener) Stop() {
	if l.conn == nil {
		return
	}
	_ = l.conn.Close()
	<-l.doneC
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.doneC)

	buf := make([]byte, network.MaxUDPSize)
	for {
		amt, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		data := append([]byte(nil), buf[:amt]...)
		_ = l.Dispatcher.HandleLocalDatagram(from, data)
	}
}
