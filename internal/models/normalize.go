package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// fields is a decoded JSON object with lower-cased keys, so that
// "postID", "PostId" and "postId" all land on "postid".
type fields map[string]json.RawMessage

func decodeFields(data []byte) (fields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	f := make(fields, len(raw))
	for k, v := range raw {
		key := strings.ToLower(k)
		if prev, ok := f[key]; ok && !isEmpty(prev) {
			continue
		}
		f[key] = v
	}
	return f, nil
}

func isEmpty(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null")) || bytes.Equal(v, []byte(`""`))
}

// lookup returns the first non-empty value among keys.
func (f fields) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

func (f fields) Has(keys ...string) bool {
	_, ok := f.lookup(keys...)
	return ok
}

// String accepts JSON strings and numbers (numeric ids are common).
func (f fields) String(keys ...string) string {
	v, ok := f.lookup(keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

func (f fields) Float(keys ...string) float64 {
	v, ok := f.lookup(keys...)
	if !ok {
		return 0
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n
		}
	}
	return 0
}

func (f fields) Int(keys ...string) int {
	return int(f.Float(keys...))
}

func (f fields) Bool(keys ...string) bool {
	v, ok := f.lookup(keys...)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		b, _ = strconv.ParseBool(strings.TrimSpace(s))
		return b
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return n != 0
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses RFC 3339, zone-less ISO timestamps, plain dates, or unix milliseconds.
func (f fields) Time(keys ...string) time.Time {
	v, ok := f.lookup(keys...)
	if !ok {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return parseTime(s)
	}
	var ms int64
	if err := json.Unmarshal(v, &ms); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Into decodes the first non-empty value among keys into dst.
func (f fields) Into(dst interface{}, keys ...string) bool {
	v, ok := f.lookup(keys...)
	if !ok {
		return false
	}
	return json.Unmarshal(v, dst) == nil
}

// Strings accepts either a JSON array of strings or a comma separated string.
func (f fields) Strings(keys ...string) []string {
	v, ok := f.lookup(keys...)
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
	}
	return list
}
