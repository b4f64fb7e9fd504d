//go:build windows

package gateways

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// processTree kills a tool together with every process it started.
// On Windows the tool runs inside a job object that dies with its handle.
type processTree struct {
	job windows.Handle
}

func newProcessTree(cmd *exec.Cmd) (*processTree, error) {
	// Console tools must not flash a window
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}

	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create job object: %w", err)
	}
	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	if _, err := windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		_ = windows.CloseHandle(job)
		return nil, fmt.Errorf("failed to configure job object: %w", err)
	}

	cmd.Cancel = func() error {
		return windows.TerminateJobObject(job, 1)
	}
	return &processTree{job: job}, nil
}

// attach moves a started process into the job
func (t *processTree) attach(p *os.Process) error {
	h, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(p.Pid))
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close on process handle
	defer windows.CloseHandle(h)
	return windows.AssignProcessToJobObject(t.job, h)
}

// release closes the job, killing anything the tool left running
func (t *processTree) release() {
	_ = windows.CloseHandle(t.job)
}
