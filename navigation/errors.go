package navigation

import "errors"

var (
	// ErrInvalidTarget marks a navigate action pointing at a missing,
	// deactivated, or foreign menu. Absorbed by the engine: the current
	// menu is re-rendered instead.
	ErrInvalidTarget = errors.New("navigation: invalid navigate target")

	// ErrInvalidConfig marks a malformed action descriptor on a stored
	// button. Absorbed like ErrInvalidTarget.
	ErrInvalidConfig = errors.New("navigation: invalid action config")

	// ErrStorageConflict marks a concurrent-write collision on a context
	// row. Retried internally; callers never see it unless retries are
	// exhausted.
	ErrStorageConflict = errors.New("navigation: storage conflict")

	// ErrStorageUnavailable marks a transient storage failure. Propagated
	// to the transport boundary for retry.
	ErrStorageUnavailable = errors.New("navigation: storage unavailable")
)
