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

var _ = Describe("HostConfig", func() {
	It("loads and round-trips the panel's configuration", func() {
		var savedBody json.RawMessage
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			switch code {
			case local.CodeGetHostConfig:
				page := []interface{}{900, 0, 0, 1, 2, 2, 60, 2, 0, 60, 2}
				frame, _ := local.EncodeResponse(code, page)
				_, _ = conn.WriteToUDP(frame, from)
			case local.CodeSetHostConfig:
				savedBody = body
				frame, _ := local.EncodeResponse(code, local.NoBody)
				_, _ = conn.WriteToUDP(frame, from)
			}
		})
		defer fp.close()

		eng := &command.Engine{}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		cfg, err := LoadHostConfig(ctx, eng, fp.host(), fp.port(), nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(cfg.AlarmSirenDuration).To(Equal(900))
		Expect(cfg.SpeechLanguage).To(Equal(SpeechEnglishMale))
		Expect(cfg.SpeechVolumeLevel).To(Equal(VolumeHigh))
		Expect(cfg.TimezoneOffsetM).To(Equal(60))
		Expect(cfg.KeyToneVolumeLevel).To(Equal(VolumeMute))
		Expect(cfg.RingDuration).To(Equal(60))
		Expect(cfg.AlarmDelay).To(Equal(0))
		Expect(cfg.ArmDelay).To(Equal(0))
		Expect(cfg.BacklightDuration).To(Equal(1))
		Expect(cfg.AlarmVolumeLevel).To(Equal(VolumeHigh))
		Expect(cfg.RingVolumeLevel).ToNot(BeNil())
		Expect(*cfg.RingVolumeLevel).To(Equal(VolumeHigh))

		cfg.AlarmSirenDuration = 600
		Expect(cfg.Save(ctx, eng, fp.host(), fp.port())).To(Succeed())

		var sent []int
		Expect(json.Unmarshal(savedBody, &sent)).To(Succeed())
		Expect(sent).To(Equal([]int{600, 0, 0, 1, 2, 2, 60, 2, 0, 60, 2}))
	})

	It("rejects an out-of-range field at Save without touching the device", func() {
		cfg := &HostConfig{
			AlarmSirenDuration: 1000, // out of [0,999]
			AlarmVolumeLevel:   VolumeHigh, SpeechVolumeLevel: VolumeHigh,
			KeyToneVolumeLevel: VolumeMute,
		}
		err := cfg.Save(context.Background(), &command.Engine{}, "127.0.0.1", 0)
		Expect(err).To(HaveOccurred())
	})

	It("refuses to write ring_volume_level when the device never reported it", func() {
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			if code != local.CodeGetHostConfig {
				return
			}
			// No trailing ring_volume_level field: device lacks a cellular module.
			page := []interface{}{900, 0, 0, 1, 2, 2, 60, 2, 0, 60}
			frame, _ := local.EncodeResponse(code, page)
			_, _ = conn.WriteToUDP(frame, from)
		})
		defer fp.close()

		eng := &command.Engine{}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		cfg, err := LoadHostConfig(ctx, eng, fp.host(), fp.port(), nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.RingVolumeLevel).To(BeNil())

		ring := VolumeHigh
		cfg.RingVolumeLevel = &ring
		Expect(cfg.Save(ctx, eng, fp.host(), fp.port())).To(HaveOccurred())
	})
})
