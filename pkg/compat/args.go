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

package compat

import (
	"fmt"
	"regexp"

	"github.com/mattn/go-shellwords"
)

// steamCommandToken stands for the game executable in Steam launch
// options and carries no argument of its own.
const steamCommandToken = "%command%"

var assignmentRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)

// Assignment is one KEY=value token.
type Assignment struct {
	Key   string
	Value string
}

// LaunchArgs is a launch-arguments string split into its parts.
type LaunchArgs struct {
	// Env holds the KEY=value tokens before the first argument, in order.
	Env []Assignment
	// Reserved holds assignments of launcher-owned variables found after
	// the leading block. They are never passed to the game.
	Reserved []Assignment
	Args     []string
}

// EnvMap returns Env as a map, later tokens winning.
func (l LaunchArgs) EnvMap() map[string]string {
	m := make(map[string]string, len(l.Env))
	for _, a := range l.Env {
		m[a.Key] = a.Value
	}
	return m
}

// SplitLaunchArgs tokenizes s with shell quoting rules.
func SplitLaunchArgs(s string) (LaunchArgs, error) {
	var out LaunchArgs
	tokens, err := tokenize(s)
	if err != nil {
		return out, err
	}

	leading := true
	for _, tok := range tokens {
		if tok == steamCommandToken {
			leading = false
			continue
		}
		m := assignmentRe.FindStringSubmatch(tok)
		switch {
		case m != nil && leading:
			out.Env = append(out.Env, Assignment{Key: m[1], Value: m[2]})
		case m != nil && IsReserved(m[1]):
			out.Reserved = append(out.Reserved, Assignment{Key: m[1], Value: m[2]})
		default:
			leading = false
			out.Args = append(out.Args, tok)
		}
	}
	return out, nil
}

// tokenize keeps going past unquoted separators such as ';' which the
// parser treats as the end of a command.
func tokenize(s string) ([]string, error) {
	var tokens []string
	p := shellwords.NewParser()
	for {
		toks, err := p.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid launch arguments: %w", err)
		}
		tokens = append(tokens, toks...)
		if p.Position < 0 {
			return tokens, nil
		}
		// Position counts runes
		s = string([]rune(s)[p.Position+1:])
	}
}
