package notify

import (
	"context"
	"net"

	"github.com/panelkit/panelctl/protocol/local"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Listener", func() {
	It("feeds received datagrams to its Dispatcher", func() {
		got := make(chan int, 1)
		d := &Dispatcher{Callbacks: Callbacks{OnArmDisarm: func(state int) { got <- state }}}

		l := &Listener{Dispatcher: d}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Expect(l.Start(ctx, 0)).To(Succeed())
		defer l.Stop()

		addr := l.conn.LocalAddr().(*net.UDPAddr)
		sender, err := net.DialUDP("udp4", nil, addr)
		Expect(err).ToNot(HaveOccurred())
		defer sender.Close()

		_, err = sender.Write(frame(local.CodeNotification, []interface{}{KindArmDisarm, StateArmHome}))
		Expect(err).ToNot(HaveOccurred())

		Eventually(got).Should(Receive(Equal(StateArmHome)))
	})
})
