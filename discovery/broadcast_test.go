package discovery

import (
	"context"
	"net"
	"time"

	"github.com/panelkit/panelctl/protocol/local"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// fakePanels starts a loopback UDP responder that answers the first
// host-info query with n replies, each carrying a distinct guid, simulating
// several panels replying to one broadcast query.
func fakePanels(n int) (*net.UDPConn, func()) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	Expect(err).ToNot(HaveOccurred())

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 2048)
		for {
			amt, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			code, _, err := local.DecodeRequest(buf[:amt])
			if err != nil || code != local.CodeHostInfo {
				continue
			}
			for count := 1; count <= n; count++ {
				guid := []byte("GUID0")
				guid[4] = byte('0' + count)
				body := []interface{}{string(guid), "PROD", "1.0", "1.0", "206", "206", 3, 3, 0, 0, "0000", 0, 0}
				frame, _ := local.EncodeResponse(local.CodeHostInfo, body)
				_, _ = conn.WriteToUDP(frame, from)
			}
			return
		}
	}()

	return conn, func() { conn.Close(); <-done }
}

var _ = Describe("Discover", func() {
	It("collects replies from multiple panels within the listen window", func() {
		conn, stop := fakePanels(3)
		defer stop()
		addr := conn.LocalAddr().(*net.UDPAddr)

		results, err := Discover(context.Background(), Options{
			Host: "127.0.0.1", Port: addr.Port, Timeout: 300 * time.Millisecond,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(HaveLen(3))

		guids := map[string]bool{}
		for _, r := range results {
			guids[r.GUID] = true
			Expect(r.HostInfo.GSMSignal).To(Equal(3))
		}
		Expect(guids).To(HaveLen(3))
	})

	It("ignores malformed replies and keeps listening", func() {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
		Expect(err).ToNot(HaveOccurred())
		addr := conn.LocalAddr().(*net.UDPAddr)

		go func() {
			buf := make([]byte, 2048)
			amt, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			_, _ = local.DecodeExpect(buf[:amt], local.CodeHostInfo)
			_, _ = conn.WriteToUDP([]byte("not a frame"), from)
		}()
		defer conn.Close()

		results, err := Discover(context.Background(), Options{
			Host: "127.0.0.1", Port: addr.Port, Timeout: 150 * time.Millisecond,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(BeEmpty())
	})
})
