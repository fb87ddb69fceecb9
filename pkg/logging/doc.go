// Package logging is the process-wide diagnostic sink used by the goasync
// scheduling packages.
//
// Nothing is logged until a sink is installed. A sink is a plain function
// receiving a level and a message, so any logging library can be plugged in:
//
//	logger, _ := zap.NewProduction()
//	logging.SetSink(logging.ZapSink(logger))
//
// SetSink succeeds exactly once per process. Later calls are ignored and
// report false. Readers load the sink through an atomic pointer, so logging
// from worker threads needs no further synchronization.
//
// Levels mirror the four levels the pool emits:
//   - Debug: worker lifecycle (thread started, thread stopped)
//   - Information: pool lifecycle (pool started, pool terminated)
//   - Warning: degraded behaviour (priority could not be applied)
//   - Error: faults escaping a unit and critical worker exits
package logging
