// Package lifecycle sequences the warden daemon state machine.
//
// Controller implements the start, stop, restart, and status verbs plus the
// attached foreground mode, combining terminal detachment, the pid-file
// liveness record, and signal-driven shutdown. Shutdown owns the
// graceful-stop protocol: a termination signal invokes the host exit
// callback, flips a stop flag the run loop polls between iterations, and
// arms an escalation deadline that forces the process down if the loop has
// not exited in time. The deadline is armed before the exit callback runs,
// so even a callback that never returns cannot stall shutdown.
package lifecycle
