package supplier

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied means the portal degraded the session to guest mode.
	// The whole browsing session is unusable, not just the current part
	// code, so this is never retried across spelling variants and callers
	// are expected to abort the batch run.
	ErrAccessDenied = errors.New("supplier: guest mode, session state is invalid or expired")

	// ErrPageTimeout means a required page element did not appear within
	// the configured bound. Non-fatal at the batch level.
	ErrPageTimeout = errors.New("supplier: page element did not appear in time")

	// errNoMatch marks the expected, non-exceptional miss of one search
	// variant. Internal: it only steers the variant loop.
	errNoMatch = errors.New("supplier: search returned no usable result")
)

// ResolutionError is returned when no spelling variant of a part code
// produced a brand/number pair. It carries the last intermediate cause, if
// any, so the final error is always the most informative one.
type ResolutionError struct {
	PartCode string
	Variants []string
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("supplier: could not resolve %q (tried %d variants): %v", e.PartCode, len(e.Variants), e.Err)
	}
	return fmt.Sprintf("supplier: could not resolve %q (tried %d variants)", e.PartCode, len(e.Variants))
}

func (e *ResolutionError) Unwrap() error { return e.Err }
