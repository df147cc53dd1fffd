// Package config loads, normalizes, and validates warden configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and resolves relative daemon paths against
// the configured working directory so the control verbs and the detached
// process always agree on the same pid file and stream targets. The Config
// type centralizes every knob the daemon and CLI need, and CreateSample
// writes the annotated starter file used by `warden config init`.
package config
