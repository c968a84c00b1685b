package jobs

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Enabled         bool   `env:"SCHEDULER_ENABLED" envDefault:"true"`
	CleanupSchedule string `env:"CLEANUP_SCHEDULE" envDefault:"0 3 * * *"`
	DigestSchedule  string `env:"DIGEST_SCHEDULE" envDefault:"0 * * * *"`
	Timezone        string `env:"SCHEDULER_TIMEZONE" envDefault:"UTC"`
}

const (
	JobCleanup = "expiry_cleanup"
	JobDigest  = "digest"
)

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Join(ErrInvalidSchedule, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	return loc, nil
}

// Register adds the cleanup and digest jobs on their configured schedules.
// A nil job is left out.
func Register(s *Scheduler, cfg Config, cleanup *Cleanup, digest *DigestJob) error {
	if cleanup != nil {
		if err := s.Register(JobCleanup, cfg.CleanupSchedule, cleanup.Run); err != nil {
			return err
		}
	}
	if digest != nil {
		if err := s.Register(JobDigest, cfg.DigestSchedule, digest.Run); err != nil {
			return err
		}
	}
	return nil
}
