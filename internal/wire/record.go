package wire

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// record accumulates delimiter-separated fields.
type record struct {
	b   strings.Builder
	sep string
	n   int
}

func newRecord(sep string) *record {
	return &record{sep: sep}
}

func (r *record) raw(s string) *record {
	if r.n > 0 {
		r.b.WriteString(r.sep)
	}
	r.b.WriteString(s)
	r.n++
	return r
}

func (r *record) str(key int, v string) *record {
	return r.raw(strconv.Itoa(key)).raw(v)
}

func (r *record) int(key, v int) *record {
	return r.str(key, strconv.Itoa(v))
}

// optInt writes an empty value in place of zero.
func (r *record) optInt(key, v int) *record {
	if v == 0 {
		return r.str(key, "")
	}
	return r.int(key, v)
}

func (r *record) String() string { return r.b.String() }

// Base64 encodes free text (descriptions, comments) for the wire.
func Base64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// DecodeBase64 reverses Base64, accepting both the standard and URL-safe
// alphabets with or without padding.
func DecodeBase64(s string) (string, error) {
	s = strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimSpace(s))
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
