// Package jobs owns the time-driven work of the notification service: the
// daily expiry cleanup and the digest dispatch.
//
// Scheduler wraps robfig/cron with a start/stop lifecycle and a per-job
// running flag, so a job that is still running when its next trigger fires
// is skipped. The same guard applies to manual runs through Scheduler.Run.
// The scheduler assumes it is the only active instance; running several
// would send duplicate digests.
package jobs
