/*
Package scheduler fires jobs into an async.Service at a point in time, after a
delay, at a fixed interval or on a cron schedule.

Basic Usage:

	svc, err := async.New("jobs", async.WithThreads(2))
	if err != nil {
		return err
	}
	defer svc.Dispose()

	s, err := scheduler.NewWithConfig(scheduler.Config{Service: svc, Name: "jobs"})
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}
	defer func() { <-s.Stop() }()

	// Once, in five seconds
	s.ScheduleAfter("warmup", warmup, 5*time.Second)

	// Every thirty seconds, starting now
	s.ScheduleRepeating("heartbeat", heartbeat, 30*time.Second)

	// Weekdays at 09:00:00
	s.ScheduleCron("report", "0 0 9 * * MON-FRI", report)

Cron expressions:

Expressions have six fields, seconds first, and are parsed by
github.com/robfig/cron/v3. Descriptors such as "@hourly" and "@every 1m" are
accepted too. ValidateCron checks an expression without scheduling anything.

Firing:

A tick loop (50ms by default) submits every due job to the service with
Service.Go. A submission the service refuses, typically because it has been
disposed, is logged at Warning and counted; the scheduler keeps running. A job
that fails is logged at Warning once its future resolves. Wrap a job in
BackoffJob to retry it.

Without Config.Service the scheduler creates a four-thread service of its own
and disposes it on Stop.
*/
package scheduler
