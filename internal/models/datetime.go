// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package models

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// BackendTimeLayout is the timestamp format the backend stores and expects.
const BackendTimeLayout = "2006-01-02 15:04:05"

var acceptedTimeLayouts = []string{
	BackendTimeLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// DateTime decodes either the backend's "YYYY-MM-DD hh:mm:ss" format or RFC3339
// and always encodes in the backend format. Values without a zone are read in
// time.Local, and zoned values are converted to time.Local before encoding
// since the backend format carries no offset.
type DateTime struct {
	time.Time
}

// ParseDateTime parses s with the accepted layouts.
func ParseDateTime(s string) (DateTime, error) {
	for _, layout := range acceptedTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return DateTime{Time: t}, nil
		}
	}
	return DateTime{}, fmt.Errorf("unrecognised time %q", s)
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	if s == "" || s == "0000-00-00 00:00:00" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.In(time.Local).Format(BackendTimeLayout))
}
