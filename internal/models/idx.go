// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

// Package models holds the gateway's view of backend records and the request
// payloads it validates before forwarding. Field names follow the backend's
// column names (mt_idx, sgt_idx, sgdt_idx, ...) so payloads pass through
// without renaming.
package models

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Idx is a backend primary key. The PHP endpoints return ids as strings and
// the FastAPI ones as numbers; both decode into Idx.
type Idx int64

func (i *Idx) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*i = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*i = 0
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid idx %q: %w", data, err)
	}
	*i = Idx(n)
	return nil
}

// ParseIdx parses a path or query parameter. Zero and negatives are rejected.
func ParseIdx(s string) (Idx, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return Idx(n), nil
}

func (i Idx) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// YN is the backend's 'Y'/'N' flag column type.
type YN string

const (
	Yes YN = "Y"
	No  YN = "N"
)

// Bool reports whether the flag is set.
func (f YN) Bool() bool {
	return f == Yes
}

// FromBool converts a Go bool to a flag.
func FromBool(b bool) YN {
	if b {
		return Yes
	}
	return No
}
