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

package mocks

import (
	"context"

	"github.com/LodestoneProject/lodestone-core/pkg/helpers/command"
	"github.com/stretchr/testify/mock"
)

// MockCommandExecutor is a testify mock for command.Executor.
// It allows testing code that executes system commands without actually running them.
type MockCommandExecutor struct {
	mock.Mock
}

// Run mocks the execution of a system command.
// Use On() to set expectations and Return() to control the mock behavior.
//
// Example:
//
//	mockCmd := &MockCommandExecutor{}
//	mockCmd.On("Run", mock.Anything, "winetricks", mock.Anything).Return(nil)
func (m *MockCommandExecutor) Run(ctx context.Context, name string, args ...string) error {
	called := m.Called(ctx, name, args)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Error(0)
}

// Output mocks running a command and capturing its standard output.
func (m *MockCommandExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	called := m.Called(ctx, name, args)
	out, _ := called.Get(0).([]byte)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return out, called.Error(1)
}

// Start mocks a fire-and-forget command.
func (m *MockCommandExecutor) Start(ctx context.Context, name string, args ...string) error {
	called := m.Called(ctx, name, args)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Error(0)
}

// StartWithOptions mocks a fire-and-forget command with platform options.
func (m *MockCommandExecutor) StartWithOptions(
	ctx context.Context,
	opts command.StartOptions,
	name string,
	args ...string,
) error {
	called := m.Called(ctx, opts, name, args)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return called.Error(0)
}

// Spawn mocks starting a tracked process. The first return value should be
// a command.Process, usually a *MockProcess.
//
//	proc := mocks.NewExitedProcess(0)
//	mockCmd.On("Spawn", mock.Anything, mock.MatchedBy(func(s command.Spec) bool {
//		return s.Name == "umu-run"
//	})).Return(proc, nil)
func (m *MockCommandExecutor) Spawn(ctx context.Context, spec command.Spec) (command.Process, error) {
	called := m.Called(ctx, spec)
	proc, _ := called.Get(0).(command.Process)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return proc, called.Error(1)
}

// SpawnedSpecs returns the specs of every Spawn call in order.
func (m *MockCommandExecutor) SpawnedSpecs() []command.Spec {
	var specs []command.Spec
	for _, c := range m.Calls {
		if c.Method != "Spawn" {
			continue
		}
		if s, ok := c.Arguments.Get(1).(command.Spec); ok {
			specs = append(specs, s)
		}
	}
	return specs
}

// MockProcess is a testify mock for command.Process.
type MockProcess struct {
	mock.Mock
}

func (m *MockProcess) Pid() int {
	return m.Called().Int(0)
}

func (m *MockProcess) Wait() (command.ExitResult, error) {
	called := m.Called()
	res, _ := called.Get(0).(command.ExitResult)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return res, called.Error(1)
}

func (m *MockProcess) Terminate() error {
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return m.Called().Error(0)
}

// NewExitedProcess returns a process that has already exited with code.
func NewExitedProcess(code int) *MockProcess {
	p := &MockProcess{}
	p.On("Pid").Return(4242).Maybe()
	p.On("Wait").Return(command.ExitResult{Code: code}, nil).Maybe()
	p.On("Terminate").Return(nil).Maybe()
	return p
}

// NewBlockingProcess returns a process whose Wait blocks until exit is
// closed, then reports code. Terminate closes exit and reports a signal.
func NewBlockingProcess(code int) (proc *MockProcess, exit chan struct{}) {
	exit = make(chan struct{})
	p := &MockProcess{}
	p.On("Pid").Return(4243).Maybe()
	p.On("Wait").Return(command.ExitResult{Code: code}, nil).Run(func(mock.Arguments) { <-exit }).Maybe()
	p.On("Terminate").Return(nil).Run(func(mock.Arguments) {
		select {
		case <-exit:
		default:
			close(exit)
		}
	}).Maybe()
	return p, exit
}
