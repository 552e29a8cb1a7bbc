package history

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/notify"
	"github.com/panelkit/panelctl/protocol/local"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Simulator", func() {
	It("fires no alert on the first poll, then one alert per entry newer than the last one seen (S7-style fixture)", func() {
		var mu sync.Mutex
		poll := 0
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			if code != local.CodeGetHistory {
				return
			}
			mu.Lock()
			poll++
			n := poll
			mu.Unlock()

			var page []interface{}
			if n == 1 {
				page = []interface{}{
					[]interface{}{1, 1, 1},
					[]interface{}{2, 5, 0, 0, "", 1630142871, ""},
				}
			} else {
				page = []interface{}{
					[]interface{}{3, 1, 3},
					[]interface{}{3, 33, 1, 1, "Sensor 1", 1630147285, ""},
					[]interface{}{2, 3, 0, 0, "", 1630142877, ""},
					[]interface{}{2, 5, 0, 0, "", 1630142871, ""},
				}
			}
			frame, _ := local.EncodeResponse(code, page)
			_, _ = conn.WriteToUDP(frame, from)
		})
		defer fp.close()

		var mu2 sync.Mutex
		var alarms []int
		var armDisarmStates []int
		disp := &notify.Dispatcher{
			Callbacks: notify.Callbacks{
				OnAlarm: func(idx int, name string, isTampered bool) {
					mu2.Lock()
					alarms = append(alarms, idx)
					mu2.Unlock()
				},
				OnArmDisarm: func(state int) {
					mu2.Lock()
					armDisarmStates = append(armDisarmStates, state)
					mu2.Unlock()
				},
			},
		}

		sim := &Simulator{
			Engine:     &command.Engine{},
			Host:       fp.host(),
			Port:       fp.port(),
			Dispatcher: disp,
			Interval:   30 * time.Millisecond,
			Depth:      3,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		sim.Start(ctx)

		Eventually(func() []int {
			mu2.Lock()
			defer mu2.Unlock()
			return append([]int(nil), alarms...)
		}, time.Second).Should(Equal([]int{33}))

		Eventually(func() []int {
			mu2.Lock()
			defer mu2.Unlock()
			return append([]int(nil), armDisarmStates...)
		}, time.Second).Should(Equal([]int{notify.StateDisarm}))

		Consistently(func() int {
			mu2.Lock()
			defer mu2.Unlock()
			return len(alarms)
		}, 200*time.Millisecond).Should(Equal(1))

		sim.Stop()
	})

	It("stops the local listener at Start and restarts it at Stop only if it was running", func() {
		fp := startFakePanel(func(code local.Code, body json.RawMessage, from *net.UDPAddr, conn *net.UDPConn) {
			if code != local.CodeGetHistory {
				return
			}
			page := []interface{}{[]interface{}{0, 1, 0}}
			frame, _ := local.EncodeResponse(code, page)
			_, _ = conn.WriteToUDP(frame, from)
		})
		defer fp.close()

		stopped := false
		started := false
		sim := &Simulator{
			Engine:             &command.Engine{},
			Host:               fp.host(),
			Port:               fp.port(),
			Dispatcher:         &notify.Dispatcher{},
			Interval:           time.Hour,
			StopLocalListener:  func() bool { stopped = true; return true },
			StartLocalListener: func() error { started = true; return nil },
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		sim.Start(ctx)
		Expect(stopped).To(BeTrue())

		sim.Stop()
		Expect(started).To(BeTrue())
	})

	It("does not restart the listener at Stop if none was running", func() {
		sim := &Simulator{
			Engine:             &command.Engine{},
			Host:               "127.0.0.1",
			Dispatcher:         &notify.Dispatcher{},
			Interval:           time.Hour,
			StopLocalListener:  func() bool { return false },
			StartLocalListener: func() error { Fail("must not restart a listener that was not running"); return nil },
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		sim.Start(ctx)
		sim.Stop()
	})
})
