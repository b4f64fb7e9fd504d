//go:build unix

package gateways

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// processTree kills a tool together with every process it started.
// On unix the tool leads its own process group.
type processTree struct{}

func newProcessTree(cmd *exec.Cmd) (*processTree, error) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// A negative pid signals the whole group
		err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	return &processTree{}, nil
}

func (t *processTree) attach(_ *os.Process) error { return nil }

func (t *processTree) release() {}
