// Package config implements the panel's loadable/savable configuration
// records (alert flags, host config, network config, alarm phone numbers):
// call a LOAD command code to populate a struct, call a SAVE command code
// with its ordered field values to persist changes.
package config

import (
	"github.com/panelkit/panelctl/protocol/perrors"
	"github.com/panelkit/panelctl/support/logging"
)

// intBounds validates an integer field against an inclusive [min,max] range.
type intBounds struct{ min, max int }

func (b intBounds) check(field string, v int) error {
	if v < b.min || v > b.max {
		return perrors.Newf(perrors.Validation, "%s: value %d outside allowed range [%d,%d]", field, v, b.min, b.max)
	}
	return nil
}

// strBounds validates a string field's length against an inclusive
// [min,max] range.
type strBounds struct{ min, max int }

func (b strBounds) check(field string, v string) error {
	n := len(v)
	if n < b.min || n > b.max {
		return perrors.Newf(perrors.Validation, "%s: length %d outside allowed range [%d,%d]", field, n, b.min, b.max)
	}
	return nil
}

// trust logs a validation failure as a warning instead of propagating it.
// Used for values loaded from the panel itself, which are trusted to
// tolerate firmware variance the declared bounds don't anticipate.
func trust(logger logging.L, err error) {
	if err != nil {
		logging.Must(logger).Warnf("config: %s (trusted as loaded from device)", err)
	}
}
