package probe

import (
	"errors"
	"fmt"
)

var (
	// ErrNotProbed is returned when a capability is read before the
	// registry populated it.
	ErrNotProbed = errors.New("capability not probed")

	// ErrIncompleteTranscript is returned by ParseTranscript when the
	// completion banner never arrived.
	ErrIncompleteTranscript = errors.New("transcript incomplete")
)

// guard runs fn and converts a panic into an error, so a misbehaving host can
// only ever fail the probe that touched it.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	return fn()
}
