package history

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"

	. "github.com/onsi/ginkgo"
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

var _ = Describe("Fetch", func() {
	It("sorts history entries by timestamp descending, regardless of wire order (S7-style fixture)", func() {
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			if code != local.CodeGetHistory {
				return
			}
			page := []interface{}{
				[]interface{}{2, 1, 2},
				[]interface{}{2, 5, 0, 0, "", 1630142871, ""},
				[]interface{}{2, 3, 0, 0, "", 1630142877, ""},
			}
			frame, _ := local.EncodeResponse(code, page)
			_, _ = conn.WriteToUDP(frame, from)
		})
		defer fp.close()

		eng := &command.Engine{}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		entries, err := Fetch(ctx, eng, fp.host(), fp.port(), 2)
		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].raw.UnixTime).To(BeNumerically(">", entries[1].raw.UnixTime))
	})
})
