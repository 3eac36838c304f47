// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package backend

import (
	"strings"

	"github.com/tidwall/gjson"
)

// envelope is the decoded shape of a backend answer. The FastAPI service
// replies {"success":bool,"data":..,"message":..}; the PHP endpoints reply
// {"result":"Y"|"N","data":..,"msg":..}. Bodies without either marker are
// treated as bare payloads.
type envelope struct {
	ok      bool
	message string
	data    []byte
}

// parseEnvelope decodes body for an HTTP status. malformed is true when a
// non-empty body is not JSON.
func parseEnvelope(status int, body []byte) (env envelope, malformed bool) {
	httpOK := status >= 200 && status < 300

	if len(strings.TrimSpace(string(body))) == 0 {
		return envelope{ok: httpOK}, false
	}
	if !gjson.ValidBytes(body) {
		return envelope{ok: false, message: truncate(string(body), 200)}, true
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return envelope{ok: httpOK, data: body}, false
	}

	env.ok = httpOK
	marked := false
	if success := root.Get("success"); success.Exists() {
		env.ok = httpOK && success.Bool()
		marked = true
	} else if result := root.Get("result"); result.Exists() {
		env.ok = httpOK && resultOK(result)
		marked = true
	}

	env.message = envelopeMessage(root)

	if data := root.Get("data"); data.Exists() {
		if data.Type != gjson.Null {
			env.data = []byte(data.Raw)
		}
	} else if !marked && !root.Get("detail").Exists() {
		env.data = body
	}

	return env, false
}

func resultOK(r gjson.Result) bool {
	switch r.Type {
	case gjson.True:
		return true
	case gjson.String:
		switch strings.ToLower(r.Str) {
		case "y", "true", "ok", "success":
			return true
		}
	case gjson.Number:
		return r.Int() == 1
	}
	return false
}

// envelopeMessage picks the human-readable message. FastAPI validation
// failures put a list under "detail"; the first entry's msg is used.
func envelopeMessage(root gjson.Result) string {
	for _, path := range []string{"message", "msg"} {
		if m := root.Get(path); m.Type == gjson.String && m.Str != "" {
			return m.Str
		}
	}
	detail := root.Get("detail")
	switch {
	case detail.Type == gjson.String:
		return detail.Str
	case detail.IsArray():
		if first := detail.Get("0.msg"); first.Exists() {
			return first.String()
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
