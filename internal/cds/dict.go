package cds

import (
	"fmt"
	"net/url"
	"strings"
)

// Entry is one key/value pair of a Dict.
type Entry struct {
	Key   string
	Value string
}

// Dict is an ordered string mapping. The zero value is an empty dictionary.
// Keys are unique; Set on an existing key replaces the value in place.
type Dict []Entry

// Get returns the value stored under key.
func (d Dict) Get(key string) (string, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Value returns the value stored under key or the empty string.
func (d Dict) Value(key string) string {
	v, _ := d.Get(key)
	return v
}

// Set stores value under key, keeping the key's original position.
func (d *Dict) Set(key, value string) {
	for i := range *d {
		if (*d)[i].Key == key {
			(*d)[i].Value = value
			return
		}
	}
	*d = append(*d, Entry{Key: key, Value: value})
}

// Delete removes key if present.
func (d *Dict) Delete(key string) {
	for i, e := range *d {
		if e.Key == key {
			*d = append((*d)[:i], (*d)[i+1:]...)
			return
		}
	}
}

// Keys returns the keys in insertion order.
func (d Dict) Keys() []string {
	keys := make([]string, len(d))
	for i, e := range d {
		keys[i] = e.Key
	}
	return keys
}

// Clone returns an independent copy.
func (d Dict) Clone() Dict {
	if d == nil {
		return nil
	}
	out := make(Dict, len(d))
	copy(out, d)
	return out
}

// Encode serializes the dictionary as URL-escaped key=value pairs joined by '&'.
// The result never contains the resource separators '~' or '|'.
func (d Dict) Encode() string {
	if len(d) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range d {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(e.Key))
		b.WriteByte('=')
		b.WriteString(escape(e.Value))
	}
	return b.String()
}

// DecodeDict parses the output of Dict.Encode.
func DecodeDict(s string) (Dict, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "&")
	d := make(Dict, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("invalid dictionary key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("invalid dictionary value for %q: %w", key, err)
		}
		d.Set(key, value)
	}
	return d, nil
}

// escape is url.QueryEscape plus '~', which QueryEscape leaves alone but the
// resource encoding uses as its part separator.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "~", "%7E")
}
