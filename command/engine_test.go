package command

import (
	"context"
	"net"
	"time"

	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// fakePanel is a minimal UDP responder used to drive the command Engine
// against known request/response scenarios without a real panel.
type fakePanel struct {
	conn     *net.UDPConn
	received [][]byte
	doneC    chan struct{}
}

func startFakePanel(handle func(data []byte, from *net.UDPAddr, conn *net.UDPConn)) *fakePanel {
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
			data := append([]byte(nil), buf[:amt]...)
			fp.received = append(fp.received, data)
			if handle != nil {
				handle(data, from, conn)
			}
		}
	}()
	return fp
}

func (fp *fakePanel) addr() *net.UDPAddr { return fp.conn.LocalAddr().(*net.UDPAddr) }
func (fp *fakePanel) close()             { fp.conn.Close(); <-fp.doneC }

var _ = Describe("Engine.Run", func() {
	It("completes a round trip and returns the decoded body", func() {
		fp := startFakePanel(func(data []byte, from *net.UDPAddr, conn *net.UDPConn) {
			frame, err := local.EncodeResponse(local.Code(206), []interface{}{"hello"})
			Expect(err).ToNot(HaveOccurred())
			_, _ = conn.WriteToUDP(frame, from)
		})
		defer fp.close()

		e := &Engine{}
		body, err := e.Run(context.Background(), Request{
			Host: "127.0.0.1", Port: fp.addr().Port, Code: local.Code(206), Body: local.NoBody,
			Timeout: time.Second,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal(`["hello"]`))
	})

	It("raises Mismatch when the response code does not match the request", func() {
		fp := startFakePanel(func(data []byte, from *net.UDPAddr, conn *net.UDPConn) {
			frame, _ := local.EncodeResponse(local.Code(999), local.NoBody)
			_, _ = conn.WriteToUDP(frame, from)
		})
		defer fp.close()

		e := &Engine{}
		_, err := e.Run(context.Background(), Request{
			Host: "127.0.0.1", Port: fp.addr().Port, Code: local.Code(206), Body: local.NoBody,
			Timeout: 200 * time.Millisecond,
		})
		Expect(errors.Is(err, perrors.Mismatch)).To(BeTrue())
	})

	It("retries up to Retries times and then raises Timeout", func() {
		fp := startFakePanel(nil) // never replies
		defer fp.close()

		e := &Engine{}
		start := time.Now()
		_, err := e.Run(context.Background(), Request{
			Host: "127.0.0.1", Port: fp.addr().Port, Code: local.Code(206), Body: local.NoBody,
			Timeout: 50 * time.Millisecond, Retries: 3,
		})
		elapsed := time.Since(start)

		Expect(errors.Is(err, perrors.Timeout)).To(BeTrue())
		Expect(fp.received).To(HaveLen(3))
		Expect(elapsed).To(BeNumerically(">=", 150*time.Millisecond))
	})

	It("rejects NoCode", func() {
		e := &Engine{}
		_, err := e.Run(context.Background(), Request{Host: "127.0.0.1", Code: NoCode})
		Expect(err).To(HaveOccurred())
	})
})
