//go:build unix

package extract

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killGroup sends SIGKILL to the child's process group, falling back to the
// child alone if the group is already gone.
func killGroup(cmd *exec.Cmd) error {
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ESRCH) {
		return cmd.Process.Kill()
	}
	return err
}
