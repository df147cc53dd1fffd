// Package daemonrun assembles the runtime a daemon process runs after it has
// detached: the per-run log file, the run journal row, and the heartbeat
// workload. The lifecycle controller owns process concerns (pid file, signal
// handling, shutdown deadline) and drives the runtime built here through its
// callbacks.
package daemonrun
