package ids

import "github.com/segmentio/ksuid"

// New returns a random, URL-safe asset basename. KSUIDs sort by
// creation time, which keeps the images directory roughly
// chronological when listed.
func New() string {
	return ksuid.New().String()
}
