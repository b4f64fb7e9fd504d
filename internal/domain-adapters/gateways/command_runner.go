package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
)

const (
	defaultToolTimeout = 300 * time.Second

	// pipeDrainDelay bounds how long Wait keeps reading output after the
	// tree is killed, in case a detached descendant still holds the pipes
	pipeDrainDelay = 5 * time.Second
)

// CommandRunner executes external extraction tools with a hard timeout
type CommandRunner struct {
	defaultTimeout time.Duration
	logger         interfaces.Logger
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(logger interfaces.Logger) *CommandRunner {
	return &CommandRunner{
		defaultTimeout: defaultToolTimeout,
		logger:         interfaces.OrNoOp(logger),
	}
}

// RunWithTimeout runs program with args and forcibly kills it once timeout elapses
func (r *CommandRunner) RunWithTimeout(ctx context.Context, program string, args []string, timeout time.Duration) *entities.CommandResult {
	startTime := time.Now()
	result := &entities.CommandResult{}

	// Use default timeout if not specified
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: program is resolved by the tool locator, args are built by strategies
	cmd := exec.CommandContext(execCtx, program, args...)
	cmd.WaitDelay = pipeDrainDelay

	// Cancellation kills the whole tree so nothing keeps writing into targetDir
	tree, err := newProcessTree(cmd)
	if err != nil {
		result.Error = err
		result.ExitCode = -1
		return result
	}
	defer tree.release()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running tool",
		interfaces.F("program", program),
		interfaces.F("args", args),
		interfaces.F("timeout", timeout),
	)

	err = cmd.Start()
	if err == nil {
		if attachErr := tree.attach(cmd.Process); attachErr != nil {
			r.logger.Warn("cannot track tool child processes",
				interfaces.F("program", program),
				interfaces.F("error", attachErr),
			)
		}
		err = cmd.Wait()
	}
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		result.ExitCode = -1

		var exitErr *exec.ExitError
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			result.TimedOut = true
			result.Error = fmt.Errorf("tool execution timeout after %v", timeout)
		case ctx.Err() != nil:
			result.Error = ctx.Err()
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		}

		r.logger.Debug("tool finished with error",
			interfaces.F("program", program),
			interfaces.F("exit_code", result.ExitCode),
			interfaces.F("timed_out", result.TimedOut),
			interfaces.F("duration", result.Duration),
		)
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}
