// Lodestone Core
// Copyright (c) 2026 The Lodestone Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Lodestone Core.
//
// Lodestone Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Lodestone Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Lodestone Core.  If not, see <http://www.gnu.org/licenses/>.

// Package command provides an abstraction over exec.Cmd for testability.
// Game launches, redistributable installers and the compatibility runtime
// are all started through an Executor so they can be mocked in tests.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrTimedOut is returned by RunSupervised when the hard timeout fires.
var ErrTimedOut = errors.New("process timed out")

// terminateGrace is how long a terminated process gets before SIGKILL.
const terminateGrace = 10 * time.Second

// StartOptions configures command startup behavior.
type StartOptions struct {
	// HideWindow prevents a console window from appearing (Windows-only).
	HideWindow bool
}

// Spec describes a child process. Env entries are appended to the current
// environment, later entries win.
type Spec struct {
	Name string
	Dir  string
	Args []string
	Env  []string
	// Detach starts the child in its own session so it outlives the
	// context and is not signalled with the parent's process group.
	Detach     bool
	HideWindow bool
}

// String renders s for logs. It is never passed to a shell.
func (s Spec) String() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, Quote(s.Name))
	for _, a := range s.Args {
		parts = append(parts, Quote(a))
	}
	return strings.Join(parts, " ")
}

// ExitResult is the outcome of a finished process.
type ExitResult struct {
	Code     int
	Signaled bool
}

// Success is true for exit code 0 without a terminating signal.
func (r ExitResult) Success() bool {
	return r.Code == 0 && !r.Signaled
}

// Process is a started child process.
type Process interface {
	Pid() int
	// Wait blocks until exit. The error is only set when waiting itself
	// failed; a non-zero exit is reported through ExitResult.
	Wait() (ExitResult, error)
	// Terminate asks the process (group) to stop with SIGTERM.
	Terminate() error
}

// Executor provides an abstraction over exec.Command for testability.
// This allows commands to be mocked in tests without executing real system commands.
type Executor interface {
	// Run executes a command and waits for it to complete.
	// Returns an error if the command fails to start or exits with non-zero status.
	Run(ctx context.Context, name string, args ...string) error

	// Output runs a command and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start starts a command without waiting for it to complete (fire-and-forget).
	Start(ctx context.Context, name string, args ...string) error

	// StartWithOptions starts a command with platform-specific options.
	StartWithOptions(ctx context.Context, opts StartOptions, name string, args ...string) error

	// Spawn starts a process described by spec and returns a handle to it.
	Spawn(ctx context.Context, spec Spec) (Process, error)
}

// RealExecutor uses actual exec.Command to execute system commands.
type RealExecutor struct{}

// Run executes a system command using exec.CommandContext.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output runs a command and returns its standard output.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Start starts a command without waiting for it to complete.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Start(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Start()
}

// Spawn starts spec. Non-detached processes are terminated with SIGTERM
// when ctx is done.
func (*RealExecutor) Spawn(ctx context.Context, spec Spec) (Process, error) {
	var cmd *exec.Cmd
	if spec.Detach {
		cmd = exec.Command(spec.Name, spec.Args...) //nolint:gosec,noctx // detached children outlive ctx
	} else {
		cmd = exec.CommandContext(ctx, spec.Name, spec.Args...) //nolint:gosec // argv built by callers
		cmd.Cancel = func() error {
			return terminate(cmd.Process, false)
		}
		cmd.WaitDelay = terminateGrace
	}
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	applySysProcAttr(cmd, spec)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", spec.Name, err)
	}
	return &realProcess{cmd: cmd, group: spec.Detach}, nil
}

type realProcess struct {
	cmd   *exec.Cmd
	group bool
}

func (p *realProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *realProcess) Wait() (ExitResult, error) {
	err := p.cmd.Wait()
	if err == nil {
		return ExitResult{Code: 0}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return ExitResult{Code: code, Signaled: code == -1}, nil
	}
	return ExitResult{Code: -1}, fmt.Errorf("failed to wait for %s: %w", p.cmd.Path, err)
}

func (p *realProcess) Terminate() error {
	return terminate(p.cmd.Process, p.group)
}

// RunSupervised spawns spec and waits for it, terminating the process when
// timeout elapses. A timed out process always yields ErrTimedOut.
func RunSupervised(
	ctx context.Context,
	ex Executor,
	spec Spec,
	timeout time.Duration,
) (ExitResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	proc, err := ex.Spawn(runCtx, spec)
	if err != nil {
		return ExitResult{Code: -1}, err
	}

	type waitResult struct {
		err error
		res ExitResult
	}
	done := make(chan waitResult, 1)
	go func() {
		res, waitErr := proc.Wait()
		done <- waitResult{res: res, err: waitErr}
	}()

	select {
	case r := <-done:
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return ExitResult{Code: -1, Signaled: true}, ErrTimedOut
		}
		return r.res, r.err
	case <-runCtx.Done():
		// a failed terminate is followed by SIGKILL once WaitDelay expires
		if termErr := proc.Terminate(); termErr != nil && !errors.Is(termErr, os.ErrProcessDone) {
			log.Warn().Err(termErr).Int("pid", proc.Pid()).Msg("error terminating process")
		}
		<-done
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return ExitResult{Code: -1, Signaled: true}, ErrTimedOut
		}
		return ExitResult{Code: -1, Signaled: true}, fmt.Errorf("process cancelled: %w", runCtx.Err())
	}
}

// Quote returns s quoted for display in a POSIX shell.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !isShellSafe(r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./:=+,@%", r)
}
