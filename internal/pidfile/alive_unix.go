//go:build unix

package pidfile

import "golang.org/x/sys/unix"

// alive sends the zero signal, which has no effect on a live process but
// fails when the pid does not exist. Permission errors count as not alive:
// a daemon owned by another account is not ours to manage.
func alive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
