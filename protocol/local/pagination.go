package local

import (
	"encoding/json"

	"github.com/panelkit/panelctl/protocol/perrors"
)

// PaginationHeader is the header embedded as the first element of a
// paginated response body.
type PaginationHeader struct {
	// Total is the total number of records the panel holds for this range.
	Total int
	// Start is the 1-based start index of this page, as reported by the
	// panel.
	Start int
	// Count is the number of items returned in this page.
	Count int
}

// DecodePaginatedBody parses a paginated response body of the shape
// [[total, start, count], item1, item2, ...].
//
// It returns the header and the raw item values. It fails with
// perrors.Pagination if the header shape is wrong or if count disagrees with
// the number of items actually present.
func DecodePaginatedBody(body json.RawMessage) (PaginationHeader, []json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return PaginationHeader{}, nil, perrors.Wrap(perrors.Pagination, err, "could not parse paginated body")
	}
	if len(raw) == 0 {
		return PaginationHeader{}, nil, perrors.New(perrors.Pagination, "paginated body is empty")
	}

	var headerTriple [3]int
	if err := json.Unmarshal(raw[0], &headerTriple); err != nil {
		return PaginationHeader{}, nil, perrors.Wrap(perrors.Pagination, err, "could not parse pagination header")
	}
	header := PaginationHeader{
		Total: headerTriple[0],
		Start: headerTriple[1],
		Count: headerTriple[2],
	}

	items := raw[1:]
	if header.Count != len(items) {
		return header, nil, perrors.Newf(perrors.Pagination,
			"pagination header count (%d) does not match returned item count (%d)", header.Count, len(items))
	}

	return header, items, nil
}
