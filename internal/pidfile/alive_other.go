//go:build !unix

package pidfile

import "os"

// alive approximates the zero-signal probe on platforms without kill(2):
// the OS locating a process handle for the pid is the closest available
// liveness answer.
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}
