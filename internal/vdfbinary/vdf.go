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

// Package vdfbinary reads Valve's binary VDF format as used by
// userdata/<user>/config/shortcuts.vdf.
package vdfbinary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	markerMap    byte = 0x00
	markerString byte = 0x01
	markerNumber byte = 0x02
	markerEnd    byte = 0x08
)

var (
	ErrEmpty     = errors.New("empty vdf")
	ErrNotBinary = errors.New("not a binary vdf")
	ErrCorrupted = errors.New("unexpected end of vdf")
)

// Value is a string, a uint32 or a Map.
type Value struct {
	v any
}

// Map is a VDF object. Keys are stored lowercased.
type Map map[string]Value

func (v Value) Map() (Map, bool) {
	m, ok := v.v.(Map)
	return m, ok
}

func (v Value) String() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

func (v Value) Uint() (uint32, bool) {
	n, ok := v.v.(uint32)
	return n, ok
}

// Get looks up key case-insensitively.
func (m Map) Get(key string) (Value, bool) {
	v, ok := m[strings.ToLower(key)]
	return v, ok
}

func (m Map) GetMap(key string) (Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	return v.Map()
}

func (m Map) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return v.String()
}

func (m Map) GetUint(key string) (uint32, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return v.Uint()
}

// Parse reads one top level map.
func Parse(r io.Reader) (Map, error) {
	buf := bufio.NewReader(r)
	head, err := buf.Peek(1)
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	} else if err != nil {
		return nil, fmt.Errorf("failed to read vdf: %w", err)
	}
	switch head[0] {
	case markerMap, markerString, markerNumber, markerEnd:
	default:
		return nil, ErrNotBinary
	}

	m, err := parseMap(buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, ErrCorrupted
	}
	return m, err
}

func parseMap(buf *bufio.Reader) (Map, error) {
	m := make(Map)
	for {
		marker, err := buf.ReadByte()
		if err != nil {
			return nil, err //nolint:wrapcheck // EOF is mapped by Parse
		}
		if marker == markerEnd {
			return m, nil
		}

		key, err := readString(buf)
		if err != nil {
			return nil, err
		}

		var value Value
		switch marker {
		case markerMap:
			var sub Map
			sub, err = parseMap(buf)
			value = Value{sub}
		case markerString:
			var s string
			s, err = readString(buf)
			value = Value{s}
		case markerNumber:
			var n uint32
			n, err = readNumber(buf)
			value = Value{n}
		default:
			return nil, fmt.Errorf("%w: unexpected marker 0x%02x", ErrCorrupted, marker)
		}
		if err != nil {
			return nil, err
		}
		m[strings.ToLower(key)] = value
	}
}

func readString(buf *bufio.Reader) (string, error) {
	s, err := buf.ReadString(0x00)
	if err != nil {
		return "", err //nolint:wrapcheck // EOF is mapped by Parse
	}
	return s[:len(s)-1], nil
}

func readNumber(buf *bufio.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(buf, b[:]); err != nil {
		return 0, err //nolint:wrapcheck // EOF is mapped by Parse
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
