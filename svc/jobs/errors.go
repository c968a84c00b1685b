package jobs

import "errors"

var (
	ErrJobRunning      = errors.New("jobs: job already running")
	ErrJobExists       = errors.New("jobs: job already registered")
	ErrUnknownJob      = errors.New("jobs: unknown job")
	ErrInvalidSchedule = errors.New("jobs: invalid cron schedule")
	ErrCleanupFailed   = errors.New("jobs: expiry cleanup failed")
	ErrDigestFailed    = errors.New("jobs: digest run failed")
)
