// Package main hosts the warden CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into daemon
// lifecycle operations: detached start, graceful stop, restart, liveness
// status, run history reporting, and configuration scaffolding. Invoked with
// no verb, warden runs its workload attached to the terminal. Configuration
// resolution happens once per invocation here so subcommands can focus on
// user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
