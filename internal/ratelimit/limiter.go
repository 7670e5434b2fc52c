package ratelimit

import (
	"context"
	"time"
)

// FailedAuthLimiter counts failed authentication attempts per client
// address in a one-minute fixed window. It is hit only on failure; a
// later success does not reset the window early.
type FailedAuthLimiter struct {
	store Store
	limit int
}

func NewFailedAuthLimiter(store Store, limit int) *FailedAuthLimiter {
	return &FailedAuthLimiter{store: store, limit: limit}
}

// Hit records one failed attempt for addr and reports whether the
// caller is still within the limit. False means the window is
// exhausted and the caller should be rate limited rather than merely
// rejected.
func (l *FailedAuthLimiter) Hit(ctx context.Context, addr string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	count, err := l.store.Incr(ctx, "auth:"+addr, time.Minute)
	if err != nil {
		return false, err
	}
	return count <= int64(l.limit), nil
}

// UploadQuota enforces the per-minute, per-hour and per-day upload
// admission limits for a client address. It runs before authentication
// and counts admissions regardless of how the request fares later.
type UploadQuota struct {
	store     Store
	perMinute int
	perHour   int
	perDay    int
}

func NewUploadQuota(store Store, perMinute, perHour, perDay int) *UploadQuota {
	return &UploadQuota{
		store:     store,
		perMinute: perMinute,
		perHour:   perHour,
		perDay:    perDay,
	}
}

// Allow admits or rejects one upload request from addr. All three
// windows are counted on every call so a burst that trips the minute
// window still consumes hour and day budget.
func (q *UploadQuota) Allow(ctx context.Context, addr string) (bool, error) {
	windows := []struct {
		name   string
		limit  int
		window time.Duration
	}{
		{"minute", q.perMinute, time.Minute},
		{"hour", q.perHour, time.Hour},
		{"day", q.perDay, 24 * time.Hour},
	}

	allowed := true
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		count, err := q.store.Incr(ctx, "upload:"+w.name+":"+addr, w.window)
		if err != nil {
			return false, err
		}
		if count > int64(w.limit) {
			allowed = false
		}
	}
	return allowed, nil
}
