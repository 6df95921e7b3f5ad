// Package cos ("common os/string") holds small helpers reused across the
// runtime, mirroring the teacher's cmn/cos grab-bag package.
package cos

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/teris-io/shortid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MustMarshal panics on a marshal error; used only for internal, known-good
// payloads (wire structs we define ourselves), never for external input.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func Marshal(v any) ([]byte, error)            { return json.Marshal(v) }
func Unmarshal(data []byte, v any) error       { return json.Unmarshal(data, v) }

// BHead returns a short prefix of b for error messages, never the whole
// (possibly large) payload.
func BHead(b []byte) string {
	const max = 64
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...[truncated]"
}

// GenUUID returns a short, URL-safe unique id, used for xaction/backup/tag ids.
func GenUUID() string {
	id, err := shortid.Generate()
	if err != nil {
		// shortid only fails on a misconfigured generator; the default one
		// never does, so this is unreachable in practice.
		return "uuid-gen-failed"
	}
	return id
}

// IsValidUUID is a loose sanity check: non-empty and free of whitespace.
func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			return false
		}
	}
	return true
}
