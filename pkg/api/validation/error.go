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

package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error lists every field of a request body that failed validation.
type Error struct {
	Fields []FieldError
}

// FieldError is one failed rule. Field is the JSON path of the value, for
// example "parts[1].url".
type FieldError struct {
	Value   any
	Field   string
	Tag     string
	Message string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

func NewError(errs validator.ValidationErrors) *Error {
	ve := &Error{Fields: make([]FieldError, len(errs))}
	for i, fe := range errs {
		field := fieldPath(fe)
		ve.Fields[i] = FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Value:   fe.Value(),
			Message: message(field, fe),
		}
	}
	return ve
}

// fieldPath drops the struct name the validator puts in front of every
// namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

var tagMessages = map[string]string{
	"required": "is required",
	"httpurl":  "must be an http or https URL",
	"safepath": "must stay inside the download directory",
	"numeric":  "must be numeric",
}

var paramMessages = map[string]string{
	"oneof": "must be one of: %s",
	"min":   "must have at least %s",
	"gte":   "must be at least %s",
}

func message(field string, fe validator.FieldError) string {
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return field + " " + msg
	}
	if format, ok := paramMessages[fe.Tag()]; ok {
		return field + " " + fmt.Sprintf(format, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
