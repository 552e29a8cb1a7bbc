package cloud

import (
	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Encode/Parse round-trip", func() {
	It("round-trips a legacy ping request", func() {
		frame, err := Encode(&PingRequest{}, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(frame).To(HaveLen(LegacyHeaderSize))

		frames, err := Parse(frame)
		Expect(err).ToNot(HaveOccurred())
		Expect(frames).To(HaveLen(1))
		Expect(frames[0].Message).To(BeAssignableToTypeOf(&PingRequest{}))
		Expect(frames[0].Header.MessageLength).To(Equal(uint32(LegacyHeaderSize)))
	})

	It("round-trips a hello-info response carrying a port", func() {
		frame, err := Encode(&HelloInfo{Port: DefaultHelloInfoPort}, 7)
		Expect(err).ToNot(HaveOccurred())

		frames, err := Parse(frame)
		Expect(err).ToNot(HaveOccurred())
		Expect(frames).To(HaveLen(1))
		Expect(frames[0].Header.Sequence).To(Equal(uint16(7)))

		info, ok := frames[0].Message.(*HelloInfo)
		Expect(ok).To(BeTrue())
		Expect(info.Port).To(Equal(uint16(DefaultHelloInfoPort)))
	})

	It("round-trips a discovery-hello response", func() {
		m := &DiscoveryHelloResponse{Port: 15111, Timestamp: 1700000000}
		copy(m.IPAddress[:], "47.88.7.61")

		frame, err := Encode(m, 0)
		Expect(err).ToNot(HaveOccurred())

		frames, err := Parse(frame)
		Expect(err).ToNot(HaveOccurred())
		got := frames[0].Message.(*DiscoveryHelloResponse)
		Expect(got.IP()).To(Equal("47.88.7.61"))
		Expect(got.Port).To(Equal(uint16(15111)))
	})

	It("distinguishes status-change variants by type byte", func() {
		frame, err := Encode(&SensorActivity{SensorIndex: 42}, 0)
		Expect(err).ToNot(HaveOccurred())

		frames, err := Parse(frame)
		Expect(err).ToNot(HaveOccurred())
		sa, ok := frames[0].Message.(*SensorActivity)
		Expect(ok).To(BeTrue())
		Expect(sa.SensorIndex).To(Equal(uint16(42)))
	})

	It("embeds and parses a local-protocol notification frame", func() {
		raw, err := (func() ([]byte, error) {
			return []byte(`ISTART[170,["door","open"]]IEND` + "\x00"), nil
		})()
		Expect(err).ToNot(HaveOccurred())

		frame, err := Encode(&Notification{Raw: raw}, 0)
		Expect(err).ToNot(HaveOccurred())

		frames, err := Parse(frame)
		Expect(err).ToNot(HaveOccurred())
		n := frames[0].Message.(*Notification)
		Expect(n.Code).To(Equal(local.Code(170)))
	})

	It("parses successive frames packed back to back", func() {
		a, _ := Encode(&PingRequest{}, 0)
		b, _ := Encode(&HelloInfo{Port: 1}, 1)
		frames, err := Parse(append(a, b...))
		Expect(err).ToNot(HaveOccurred())
		Expect(frames).To(HaveLen(2))
	})

	It("fails with CloudFraming when message_length exceeds the buffer", func() {
		frame, err := Encode(&HelloInfo{Port: 1}, 0)
		Expect(err).ToNot(HaveOccurred())
		_, err = Parse(frame[:len(frame)-1])
		Expect(errors.Is(err, perrors.CloudFraming)).To(BeTrue())
	})

	It("fails with CloudFraming for an unregistered key", func() {
		frame, err := Encode(&CloudCommand{Text: "AT+X"}, 0)
		Expect(err).ToNot(HaveOccurred())
		// Flip source/destination so no registered message matches.
		frame[1], frame[3] = frame[3], frame[1]
		_, err = Parse(frame)
		Expect(errors.Is(err, perrors.CloudFraming)).To(BeTrue())
	})

	It("matches the cloud-ping scenario literal bytes", func() {
		// S6: 01 10 00 00 08 00 00 00
		frame, err := Encode(&PingRequest{}, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(frame).To(Equal([]byte{0x01, 0x10, 0x00, 0x00, 0x08, 0x00, 0x00, 0x00}))

		frames, err := Parse(frame)
		Expect(err).ToNot(HaveOccurred())
		Expect(frames).To(HaveLen(1))
		Expect(frames[0].Message).To(BeAssignableToTypeOf(&PingRequest{}))

		reply, err := Encode(&PingResponse{}, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(reply).To(Equal(frame))
	})
})
