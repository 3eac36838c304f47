// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable means the backend could not answer: transport failure,
	// 5xx status, malformed body or an open circuit breaker.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrNotFound means the backend answered 404.
	ErrNotFound = errors.New("backend resource not found")

	// ErrNotMember is returned by membership lookups when the member does not
	// belong to the group (or has left it).
	ErrNotMember = errors.New("not a member of this group")
)

// Error is a non-success answer from the backend. It unwraps to ErrNotFound
// for 404 and ErrUnavailable for 5xx so callers can use errors.Is.
type Error struct {
	Operation string
	Status    int
	Message   string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend %s failed with status %d: %s", e.Operation, e.Status, msg)
}

func (e *Error) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status >= 500:
		return ErrUnavailable
	default:
		return nil
	}
}

// IsClientError reports whether the backend rejected the request itself
// (4xx or a failed envelope), as opposed to being unavailable.
func (e *Error) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsUnavailable reports whether err means the backend could not answer.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// AsError is errors.As for *Error.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
