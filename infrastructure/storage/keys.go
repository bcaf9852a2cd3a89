package storage

import (
	"net/url"
	"strings"
)

// ExtractKey converts a stored file reference to a bucket-relative object
// key. References may already be plain keys, or full download URLs from
// Backblaze ("/file/<bucket>/<key>") or Supabase storage
// ("/storage/v1/object/[public|sign|authenticated/]<bucket>/<key>").
func ExtractKey(ref string) string {
	if !strings.Contains(ref, "://") {
		return strings.TrimPrefix(ref, "/")
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	path := strings.TrimPrefix(u.Path, "/")
	segments := strings.Split(path, "/")

	if key, ok := afterBucket(segments, []string{"file"}); ok {
		return key
	}
	if key, ok := afterBucket(segments, []string{"storage", "v1", "object"}); ok {
		return key
	}

	return path
}

// afterBucket matches prefix, skips an optional access-mode segment and the
// bucket name, and returns the remaining path.
func afterBucket(segments, prefix []string) (string, bool) {
	if len(segments) < len(prefix)+2 {
		return "", false
	}
	for i, p := range prefix {
		if segments[i] != p {
			return "", false
		}
	}

	rest := segments[len(prefix):]
	switch rest[0] {
	case "public", "sign", "authenticated":
		rest = rest[1:]
	}
	if len(rest) < 2 {
		return "", false
	}

	// rest[0] is the bucket name.
	return strings.Join(rest[1:], "/"), true
}
