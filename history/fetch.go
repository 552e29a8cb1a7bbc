package history

import (
	"context"
	"sort"

	"github.com/panelkit/panelctl/command"
	"github.com/panelkit/panelctl/protocol/local"
)

// Fetch retrieves the most recent count history entries, sorted by
// timestamp descending (newest first).
func Fetch(ctx context.Context, eng *command.Engine, host string, port int, count int) ([]Entry, error) {
	var entries []Entry
	err := command.FetchPaginated(ctx, eng, command.PaginatedRequest{
		Host: host, Port: port, Code: local.CodeGetHistory,
		Start: 1, End: count,
	}, func(item command.Item) error {
		t, err := decodeEntryTuple(item.Raw)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{raw: t})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].raw.UnixTime > entries[j].raw.UnixTime
	})
	return entries, nil
}
