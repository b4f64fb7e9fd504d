//go:build !unix && !windows

package gateways

import (
	"os"
	"os/exec"
)

// processTree falls back to killing the direct child only
type processTree struct{}

func newProcessTree(_ *exec.Cmd) (*processTree, error) { return &processTree{}, nil }

func (t *processTree) attach(_ *os.Process) error { return nil }

func (t *processTree) release() {}
