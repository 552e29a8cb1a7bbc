package command

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("FetchPaginated", func() {
	It("yields all items across two pages with a stable, increasing proto index (S3)", func() {
		fp := startFakePanel(func(data []byte, from *net.UDPAddr, conn *net.UDPConn) {
			code, body, err := local.DecodeRequest(data)
			Expect(err).ToNot(HaveOccurred())
			var req []int
			Expect(json.Unmarshal(body, &req)).To(Succeed())

			var raw []json.RawMessage
			if req[0] == 1 {
				raw = append(raw, json.RawMessage(`[11,1,10]`))
				for i := 1; i <= 10; i++ {
					raw = append(raw, json.RawMessage(fmt.Sprintf(`"sensor%d"`, i)))
				}
			} else {
				raw = append(raw, json.RawMessage(`[11,11,1]`))
				raw = append(raw, json.RawMessage(`"sensor11"`))
			}
			payload, err := json.Marshal(raw)
			Expect(err).ToNot(HaveOccurred())

			resp, err := local.EncodeResponse(code, json.RawMessage(payload))
			Expect(err).ToNot(HaveOccurred())
			_, _ = conn.WriteToUDP(resp, from)
		})
		defer fp.close()

		e := &Engine{}
		var items []Item
		err := FetchPaginated(context.Background(), e, PaginatedRequest{
			Host: "127.0.0.1", Port: fp.addr().Port, Code: local.Code(11),
			Start: 1, Timeout: time.Second,
		}, func(it Item) error {
			items = append(items, it)
			return nil
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(items).To(HaveLen(11))
		for i, it := range items {
			Expect(it.ProtoIndex).To(Equal(i + 1))
		}
	})

	It("raises Pagination when the item count disagrees with the header", func() {
		fp := startFakePanel(func(data []byte, from *net.UDPAddr, conn *net.UDPConn) {
			code, _, _ := local.DecodeRequest(data)
			raw := []json.RawMessage{json.RawMessage(`[1,1,1]`), json.RawMessage(`"a"`), json.RawMessage(`"b"`)}
			payload, _ := json.Marshal(raw)
			resp, _ := local.EncodeResponse(code, json.RawMessage(payload))
			_, _ = conn.WriteToUDP(resp, from)
		})
		defer fp.close()

		e := &Engine{}
		err := FetchPaginated(context.Background(), e, PaginatedRequest{
			Host: "127.0.0.1", Port: fp.addr().Port, Code: local.Code(11),
			Start: 1, Timeout: time.Second,
		}, func(Item) error { return nil })
		Expect(errors.Is(err, perrors.Pagination)).To(BeTrue())
	})
})
