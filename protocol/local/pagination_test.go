package local

import (
	"encoding/json"

	"github.com/panelkit/panelctl/protocol/perrors"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("DecodePaginatedBody", func() {
	It("parses a well-formed page", func() {
		body := json.RawMessage(`[[11,1,10],"a","b","c","d","e","f","g","h","i","j"]`)
		header, items, err := DecodePaginatedBody(body)
		Expect(err).ToNot(HaveOccurred())
		Expect(header).To(Equal(PaginationHeader{Total: 11, Start: 1, Count: 10}))
		Expect(items).To(HaveLen(10))
	})

	It("fails with Pagination when count disagrees with item count", func() {
		body := json.RawMessage(`[[11,1,10],"a","b"]`)
		_, _, err := DecodePaginatedBody(body)
		Expect(errors.Is(err, perrors.Pagination)).To(BeTrue())
	})
})
