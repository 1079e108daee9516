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

//go:build !windows

package command

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// StartWithOptions starts a command with platform-specific options on Unix.
// HideWindow option is ignored on non-Windows platforms.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) StartWithOptions(
	ctx context.Context,
	_ StartOptions,
	name string,
	args ...string,
) error {
	return exec.CommandContext(ctx, name, args...).Start()
}

func applySysProcAttr(cmd *exec.Cmd, spec Spec) {
	if spec.Detach {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}
}

// terminate sends SIGTERM to the process, or its whole group when the
// process leads its own session.
func terminate(p *os.Process, group bool) error {
	if p == nil {
		return os.ErrProcessDone
	}
	if group {
		err := unix.Kill(-p.Pid, unix.SIGTERM)
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err //nolint:wrapcheck // errno is the useful part
	}
	return p.Signal(unix.SIGTERM) //nolint:wrapcheck // os.ErrProcessDone is checked by callers
}
