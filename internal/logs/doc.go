// Package logs locates and tails warden's per-run log files.
//
// Each daemon run writes its own warden-<stamp>.log with a warden.log pointer
// at the newest one; CurrentPath resolves the file an operator wants to read
// and Tail streams it with bounded memory, supporting "last N lines" reads
// and follow-mode polling that shuts down with the caller's context.
package logs
