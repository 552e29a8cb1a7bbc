package network

import (
	"net"
	"syscall"

	"github.com/pkg/errors"
)

// DialCommandUDP4 creates a UDP4 connection to remote, optionally bound to a
// specific local port.
//
// If remote's IP is the all-hosts broadcast address, the returned
// connection has SO_BROADCAST enabled so that it may send to it.
//
// The caller owns the returned connection and must Close it.
func DialCommandUDP4(remote *net.UDPAddr, localPort int) (*net.UDPConn, error) {
	var laddr *net.UDPAddr
	if localPort > 0 {
		laddr = &net.UDPAddr{Port: localPort}
	}

	conn, err := net.DialUDP("udp4", laddr, remote)
	if err != nil {
		return nil, errors.Wrapf(err, "could not dial UDP to %s", remote)
	}

	if remote.IP.Equal(AllHostsMulticastIP4Address()) {
		if err := SetBroadcast(conn); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(err, "could not enable broadcast")
		}
	}

	return conn, nil
}

// SetBroadcast enables SO_BROADCAST on conn, which is required in order to
// send datagrams to a broadcast address.
func SetBroadcast(conn *net.UDPConn) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	if err := rawConn.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}
