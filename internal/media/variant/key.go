package variant

import (
	"fmt"
	"strconv"
	"strings"

	"imgvault/api/internal/apperr"
)

// Key identifies one derivative of an original asset. Width or Height
// may be zero, meaning that dimension is unconstrained; at least one
// must be set for a derivative to exist at all.
type Key struct {
	ID     string
	Width  int
	Height int
	Ext    string // includes the leading dot, e.g. ".png"
}

// Filename encodes the key deterministically: the same (id, w, h, ext)
// always names the same cache file. Unset dimensions render as empty,
// so "abc" at width 100 becomes "abc_100x.png".
func (k Key) Filename() string {
	return fmt.Sprintf("%s_%sx%s%s", k.ID, dim(k.Width), dim(k.Height), k.Ext)
}

func dim(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// ParseSize converts a caller-supplied size string into a pixel count.
// Empty means unspecified. A non-integer, non-positive, or (when the
// allow-list is non-empty) unlisted value is a validation error naming
// the allowed sizes.
func ParseSize(raw string, allowed []int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, invalidSize(allowed)
	}

	if len(allowed) > 0 {
		for _, a := range allowed {
			if n == a {
				return n, nil
			}
		}
		return 0, invalidSize(allowed)
	}

	return n, nil
}

func invalidSize(allowed []int) error {
	if len(allowed) == 0 {
		return apperr.Invalid("size value must be a positive integer")
	}
	parts := make([]string, len(allowed))
	for i, a := range allowed {
		parts[i] = strconv.Itoa(a)
	}
	return apperr.Invalid("size value must be one of [%s]", strings.Join(parts, ", "))
}
