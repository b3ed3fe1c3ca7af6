package usecase

import "time"

const (
	// DefaultPurgeTimeout bounds the release of external history state at the
	// end of a run. It is applied on a fresh context so that a cancelled run
	// still cleans up.
	DefaultPurgeTimeout = 5 * time.Second
)
