package config

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

var _ = Describe("AlertConfig", func() {
	It("reads the bitmask once and caches it thereafter", func() {
		reads := 0
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			if code != local.CodeGetNoticeFlag {
				return
			}
			reads++
			frame, _ := local.EncodeResponse(code, []int{1})
			_, _ = conn.WriteToUDP(frame, from)
		})
		defer fp.close()

		c := &AlertConfig{Engine: &command.Engine{}, Host: fp.host(), Port: fp.port()}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		flags, err := c.Flags(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(flags & FlagACPowerFailure).To(Equal(FlagACPowerFailure))

		_, err = c.Flags(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(reads).To(Equal(1))
	})

	It("sets an individual flag, combining it with the rest of the cached mask", func() {
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			switch code {
			case local.CodeGetNoticeFlag:
				frame, _ := local.EncodeResponse(code, []int{1})
				_, _ = conn.WriteToUDP(frame, from)
			case local.CodeSetNoticeFlag:
				frame, _ := local.EncodeResponse(code, local.NoBody)
				_, _ = conn.WriteToUDP(frame, from)
			}
		})
		defer fp.close()

		c := &AlertConfig{Engine: &command.Engine{}, Host: fp.host(), Port: fp.port()}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		Expect(c.SetFlag(ctx, FlagHostLowVoltage, true)).To(Succeed())

		ok, err := c.GetFlag(ctx, FlagACPowerFailure)
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())

		ok, err = c.GetFlag(ctx, FlagHostLowVoltage)
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
	})
})
