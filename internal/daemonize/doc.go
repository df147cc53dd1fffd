// Package daemonize detaches the calling process from its controlling
// terminal.
//
// Processes cannot fork in-place here, so the classic double fork is
// expressed as a two-phase respawn: the control process re-executes itself
// in a new session, that session leader re-executes itself once more so the
// final process can never reacquire a controlling terminal, and the final
// process adopts the configured umask and carries on as the daemon. A phase
// marker in the environment tells each generation which step it is. On
// platforms without sessions the package simulates detachment by switching
// directories and redirecting the standard streams only.
package daemonize
