package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// JoinPath appends path segments to a base URL without doubling or
// dropping slashes. A trailing slash on the last segment survives the
// join.
func JoinPath(base string, segments ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	joined := path.Join(append([]string{u.Path}, segments...)...)
	if n := len(segments); n > 0 && strings.HasSuffix(segments[n-1], "/") {
		joined += "/"
	}
	u.Path = joined

	return u.String(), nil
}

// MustJoinPath panics on a malformed base. Only for URLs the caller
// controls.
func MustJoinPath(base string, segments ...string) string {
	joined, err := JoinPath(base, segments...)
	if err != nil {
		panic(err)
	}
	return joined
}
