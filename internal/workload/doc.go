// Package workload provides the built-in daemon workload. The lifecycle
// controller drives workloads one iteration at a time so shutdown requests
// are observed between iterations; Heartbeat keeps each iteration short by
// sleeping a small quantum and only emitting a beat once per configured
// interval.
package workload
