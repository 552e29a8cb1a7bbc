package local

import (
	"encoding/json"

	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Encode/DecodeRequest round-trip", func() {
	DescribeTable("round-trips request bodies",
		func(code Code, body interface{}) {
			frame, err := Encode(code, body)
			Expect(err).ToNot(HaveOccurred())

			gotCode, gotBody, err := DecodeRequest(append([]byte(nil), frame...))
			Expect(err).ToNot(HaveOccurred())
			Expect(gotCode).To(Equal(code))

			wantBody, err := json.Marshal(body)
			Expect(err).ToNot(HaveOccurred())
			Expect(gotBody).To(MatchJSON(wantBody))
		},
		Entry("no-arg", Code(206), NoBody),
		Entry("single-arg", Code(101), []interface{}{1}),
		Entry("paginated", Code(12), []int{1, 10}),
	)

	It("fails with Framing when the two echoed codes disagree", func() {
		_, _, err := DecodeRequest([]byte(startMarker + `[206,207,""]` + endMarker))
		Expect(errors.Is(err, perrors.Framing)).To(BeTrue())
	})

	It("fails with Framing when markers are missing", func() {
		_, _, err := DecodeRequest([]byte(`[206,206,""]`))
		Expect(errors.Is(err, perrors.Framing)).To(BeTrue())
	})

	It("matches the host-info scenario literal bytes", func() {
		// S1: ISTART[206,206,""]IEND\0
		frame, err := Encode(Code(206), NoBody)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(frame)).To(Equal(`ISTART[206,206,""]` + "IEND\x00"))
	})

	It("matches the arm-away scenario literal bytes", func() {
		// S2: ISTART[101,101,[101,[1]]]IEND\0
		frame, err := Encode(Code(101), []interface{}{101, []int{1}})
		Expect(err).ToNot(HaveOccurred())
		Expect(string(frame)).To(Equal(`ISTART[101,101,[101,[1]]]` + "IEND\x00"))
	})
})

var _ = Describe("EncodeResponse/Decode round-trip", func() {
	DescribeTable("round-trips response data",
		func(code Code, data interface{}) {
			frame, err := EncodeResponse(code, data)
			Expect(err).ToNot(HaveOccurred())

			gotCode, gotBody, err := Decode(append([]byte(nil), frame...))
			Expect(err).ToNot(HaveOccurred())
			Expect(gotCode).To(Equal(code))

			wantBody, err := json.Marshal(data)
			Expect(err).ToNot(HaveOccurred())
			Expect(gotBody).To(MatchJSON(wantBody))
		},
		Entry("host info tuple", Code(206), []interface{}{"DUMMYGUID", "DUMMYPRODUCT"}),
		Entry("paginated page", Code(102), []interface{}{[]int{1, 1, 1}, []interface{}{"sensor"}}),
	)

	It("fails with Framing when markers are missing", func() {
		_, _, err := Decode([]byte(`[206,["x"]]`))
		Expect(errors.Is(err, perrors.Framing)).To(BeTrue())
	})

	It("fails with Framing when the body is not a 2-element array", func() {
		_, _, err := Decode([]byte(startMarker + `[206]` + endMarker))
		Expect(errors.Is(err, perrors.Framing)).To(BeTrue())
	})
})

var _ = Describe("DecodeExpect", func() {
	It("raises Mismatch when the response code differs", func() {
		frame := []byte(startMarker + `[207,"x"]` + endMarker)
		_, err := DecodeExpect(frame, Code(206))
		Expect(errors.Is(err, perrors.Mismatch)).To(BeTrue())
	})
})
