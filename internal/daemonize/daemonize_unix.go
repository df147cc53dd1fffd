//go:build unix

package daemonize

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// Detach advances the calling process through the detachment phases.
//
// The control process resolves the target user, respawns itself in a new
// session, and reports false so the caller exits. The session leader
// respawns once more without session leadership and also reports false.
// The final process sheds the phase marker, adopts the configured umask,
// and reports true: it is the daemon and the caller should continue.
func Detach(cfg Config) (bool, error) {
	switch os.Getenv(phaseEnv) {
	case "":
		cred, err := credentialFor(cfg.User)
		if err != nil {
			return false, err
		}
		if err := respawn(cfg, "1", true, cred); err != nil {
			return false, err
		}
		return false, nil
	case "1":
		unix.Umask(cfg.Umask)
		if err := respawn(cfg, "2", false, nil); err != nil {
			return false, err
		}
		return false, nil
	default:
		_ = os.Unsetenv(phaseEnv)
		unix.Umask(cfg.Umask)
		return true, nil
	}
}

func respawn(cfg Config, phase string, newSession bool, cred *syscall.Credential) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := cfg.ChildArgs
	if args == nil {
		args = os.Args[1:]
	}

	stdin, err := os.Open(os.DevNull)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer stdin.Close()
	stdout, err := openStream(cfg.Stdout)
	if err != nil {
		return err
	}
	defer stdout.Close()
	stderr, err := openStream(cfg.Stderr)
	if err != nil {
		return err
	}
	defer stderr.Close()

	proc := exec.Command(executable, args...)
	proc.Dir = cfg.WorkDir
	proc.Stdin = stdin
	proc.Stdout = stdout
	proc.Stderr = stderr
	proc.Env = append(environWithoutPhase(), phaseEnv+"="+phase)
	proc.SysProcAttr = &syscall.SysProcAttr{
		Setsid:     newSession,
		Credential: cred,
	}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("spawn detached process: %w", err)
	}
	return proc.Process.Release()
}

// credentialFor resolves name into spawn credentials. The runtime applies
// the group id before the user id when starting the child.
func credentialFor(name string) (*syscall.Credential, error) {
	if name == "" {
		return nil, nil
	}
	account, err := user.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("user %s not found: %w", name, err)
	}
	uid, err := strconv.ParseUint(account.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse uid for %s: %w", name, err)
	}
	gid, err := strconv.ParseUint(account.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse gid for %s: %w", name, err)
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}
