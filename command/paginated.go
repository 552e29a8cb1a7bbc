package command

import (
	"context"
	"encoding/json"
	"time"

	"github.com/panelkit/panelctl/protocol/local"
	"github.com/panelkit/panelctl/protocol/perrors"
	"github.com/panelkit/panelctl/support/logging"

	"github.com/pkg/errors"
)

// PageSize is the fixed number of records requested per page.
const PageSize = 10

// Item is a single record yielded by a paginated fetch, tagged with its
// stable 1-based position in the panel's protocol list at the time of read.
type Item struct {
	ProtoIndex int
	Raw        json.RawMessage
}

// PaginatedRequest describes a ranged, paginated local command.
type PaginatedRequest struct {
	Host string
	Port int
	Code local.Code

	// Start is the inclusive 1-based start of the range.
	Start int
	// End is the inclusive 1-based end of the range. If 0, the full range is
	// discovered from the first response's reported total.
	End int

	Timeout time.Duration
	Retries int

	Logger logging.L
}

// FetchPaginated issues a command per page of PageSize until the requested
// range (or the panel's entire record range, when End is unset) has been
// consumed, invoking onItem for each returned record in order.
func FetchPaginated(ctx context.Context, eng *Engine, req PaginatedRequest, onItem func(Item) error) error {
	if req.Start <= 0 {
		req.Start = 1
	}
	logger := logging.Must(req.Logger)

	cur := req.Start
	target := req.End // 0 means "unknown, discover from first page"

	for {
		requestEnd := cur + PageSize - 1
		if target > 0 && requestEnd > target {
			requestEnd = target
		}

		body, err := eng.Run(ctx, Request{
			Host: req.Host, Port: req.Port, Code: req.Code,
			Body:    []int{cur, requestEnd},
			Timeout: req.Timeout, Retries: req.Retries,
		})
		if err != nil {
			return errors.Wrapf(err, "paginated fetch failed at range [%d,%d]", cur, requestEnd)
		}

		header, items, err := local.DecodePaginatedBody(body)
		if err != nil {
			return err
		}

		requestedRangeSize := requestEnd - cur + 1
		if len(items) > requestedRangeSize {
			return perrors.Newf(perrors.Pagination,
				"page returned %d item(s), more than the %d requested", len(items), requestedRangeSize)
		}

		if target == 0 {
			target = header.Total
			if req.End > 0 && req.End < target {
				target = req.End
			}
		} else if header.Total < target {
			logger.Warnf("paginated fetch: panel reports total=%d, clamping requested end from %d", header.Total, target)
			target = header.Total
		}

		for i, raw := range items {
			if err := onItem(Item{ProtoIndex: cur + i, Raw: raw}); err != nil {
				return err
			}
		}

		if len(items) == 0 || cur+len(items)-1 >= target {
			return nil
		}
		cur += len(items)
	}
}
