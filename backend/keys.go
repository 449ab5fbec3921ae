package backend

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// CleanKey returns key with a single leading separator and no trailing one.
func CleanKey(key string) string {
	return path.Clean("/" + key)
}

// ParentKey returns the directory holding key. The parent of "/" is "/".
func ParentKey(key string) string {
	return path.Dir(CleanKey(key))
}

// BaseName returns the last element of key.
func BaseName(key string) string {
	return path.Base(CleanKey(key))
}

// ChildPrefix is the prefix shared by all children of the directory key.
func ChildPrefix(key string) string {
	key = CleanKey(key)
	if key == "/" {
		return key
	}
	return key + "/"
}

// ParentKeys returns all ancestors of key from the root downwards, excluding "/" and key.
func ParentKeys(key string) []string {
	key = CleanKey(key)
	if key == "/" {
		return nil
	}

	names := strings.Split(strings.TrimPrefix(key, "/"), "/")
	parents := make([]string, 0, len(names)-1)
	for i := 1; i < len(names); i++ {
		parents = append(parents, "/"+strings.Join(names[:i], "/"))
	}
	return parents
}

// ETag hashes content with xxhash.
func ETag(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

// HTTPDate formats t the way object stores report last-modified times.
func HTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// ParseHTTPDate parses an HTTP-date in any of the formats allowed by RFC 9110.
func ParseHTTPDate(s string) (time.Time, error) {
	return http.ParseTime(s)
}
