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

//go:build windows

package command

import (
	"context"
	"os"
	"os/exec"
	"syscall"
)

// StartWithOptions starts a command with platform-specific options on Windows.
// Supports HideWindow to prevent console window flash.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) StartWithOptions(
	ctx context.Context,
	opts StartOptions,
	name string,
	args ...string,
) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if opts.HideWindow {
		cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	}
	return cmd.Start()
}

func applySysProcAttr(cmd *exec.Cmd, spec Spec) {
	attr := &syscall.SysProcAttr{HideWindow: spec.HideWindow}
	if spec.Detach {
		// CREATE_NEW_PROCESS_GROUP
		attr.CreationFlags = 0x00000200
	}
	cmd.SysProcAttr = attr
}

// There is no SIGTERM on Windows; Kill is the closest equivalent.
func terminate(p *os.Process, _ bool) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return p.Kill() //nolint:wrapcheck // os.ErrProcessDone is checked by callers
}
