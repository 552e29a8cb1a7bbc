package entity

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

var _ = Describe("SensorList.fetch", func() {
	It("expands a multi-node sensor record into one entity per subindex", func() {
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			if code == local.CodeGetSensorList {
				page := []interface{}{
					[]interface{}{1, 1, 1},
					[]interface{}{"Curtain", 3, 0, 130, 0, 0, 1, 0, 0, 17, 2, 0, ""},
				}
				frame, _ := local.EncodeResponse(code, page)
				_, _ = conn.WriteToUDP(frame, from)
			}
		})
		defer fp.close()

		l := NewSensorList(&command.Engine{}, fp.addr())
		entities, err := l.Get(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(entities).To(HaveLen(2))
		Expect(entities[0].DisplayName()).To(Equal("Curtain#1"))
		Expect(entities[1].DisplayName()).To(Equal("Curtain#2"))
	})
})

var _ = Describe("SensorList.Register", func() {
	It("sends ADDSENSOR then resolves once SensorChangeCallback reports the new sensor", func() {
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			switch code {
			case local.CodeAddSensor:
				frame, _ := local.EncodeResponse(code, local.NoBody)
				_, _ = conn.WriteToUDP(frame, from)
			case local.CodeGetSensorList:
				page := []interface{}{
					[]interface{}{1, 1, 1},
					[]interface{}{"Door Sensor", 0, 0, 1, 1, 0, 1 | 32, 0, 0, 16, 1, 0, "00"},
				}
				frame, _ := local.EncodeResponse(code, page)
				_, _ = conn.WriteToUDP(frame, from)
			}
		})
		defer fp.close()

		l := NewSensorList(&command.Engine{}, fp.addr())

		var registered *Sensor
		var regErr error
		done := make(chan struct{})
		go func() {
			registered, regErr = l.Register(context.Background(), "Cord Door Sensor", 0, "Door Sensor", time.Second)
			close(done)
		}()

		Eventually(func() bool { return l.changeFuture != nil }, time.Second).Should(BeTrue())
		l.SensorChangeCallback(context.Background(), 0, "Door Sensor")

		Eventually(done, time.Second).Should(BeClosed())
		Expect(regErr).ToNot(HaveOccurred())
		Expect(registered.DisplayName()).To(Equal("Door Sensor"))
	})

	It("times out when no sensor-change notification arrives", func() {
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			if code == local.CodeAddSensor {
				frame, _ := local.EncodeResponse(code, local.NoBody)
				_, _ = conn.WriteToUDP(frame, from)
			}
		})
		defer fp.close()

		l := NewSensorList(&command.Engine{}, fp.addr())
		_, err := l.Register(context.Background(), "Cord Door Sensor", 0, "Door Sensor", 50*time.Millisecond)
		Expect(err).To(HaveOccurred())
	})
})
