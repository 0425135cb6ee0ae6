//go:build unix

package procman

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// ExecLauncher runs commands as real child processes, each in its own
// process group so signals reach the whole dev-server tree.
type ExecLauncher struct{}

func (ExecLauncher) Start(dir string, args []string, env []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("empty command")
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	// reap so a stopped child does not linger as a zombie and look alive
	go cmd.Wait()
	return cmd.Process.Pid, nil
}

func (ExecLauncher) Alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func (ExecLauncher) Terminate(pid int) error { return signalGroup(pid, syscall.SIGTERM) }

func (ExecLauncher) Kill(pid int) error { return signalGroup(pid, syscall.SIGKILL) }

func signalGroup(pid int, sig syscall.Signal) error {
	err := syscall.Kill(-pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		err = syscall.Kill(pid, sig)
	}
	if errors.Is(err, syscall.ESRCH) {
		return ErrProcessGone
	}
	return err
}
