package panel

import (
	"encoding/json"
	"net"

	"github.com/panelkit/panelctl/protocol/local"

	. "github.com/onsi/gomega"
)

type fakePanel struct {
	conn  *net.UDPConn
	doneC chan struct{}
}

func startFakePanel(handle func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn)) *fakePanel {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	Expect(err).ToNot(HaveOccurred())

	fp := &fakePanel{conn: conn, doneC: make(chan struct{})}
	go func() {
		defer close(fp.doneC)
		buf := make([]byte, 65507)
		for {
			amt, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			code, body, err := local.DecodeRequest(buf[:amt])
			if err != nil {
				continue
			}
			if handle != nil {
				handle(code, body, from, conn)
			}
		}
	}()
	return fp
}

func (fp *fakePanel) host() string { return fp.conn.LocalAddr().(*net.UDPAddr).IP.String() }
func (fp *fakePanel) port() int    { return fp.conn.LocalAddr().(*net.UDPAddr).Port }
func (fp *fakePanel) close()       { fp.conn.Close(); <-fp.doneC }
