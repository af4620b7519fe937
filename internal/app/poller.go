package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/five82/shelf/internal/coord"
	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/listcache"
	"github.com/five82/shelf/internal/loans"
)

const maxBackoff = 30 * time.Second

// StartPoller launches a background goroutine that refreshes the loan
// registry while a librarian is signed in. A non-positive interval disables
// it. It returns immediately.
func StartPoller(ctx context.Context, registry *loans.Registry, sessions coord.Sessions, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			failures = poll(ctx, registry, sessions, failures)
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// poll runs one refresh and returns the updated failure count.
func poll(ctx context.Context, registry *loans.Registry, sessions coord.Sessions, failures int) int {
	sess, ok := sessions.Current()
	if !ok || sess.Role() != library.RoleLibrarian {
		return 0
	}
	err := registry.FetchAll(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, listcache.ErrSuperseded), ctx.Err() != nil:
		return failures
	}
	log.Printf("poller: loan refresh failed (attempt %d): %v", failures+1, err)
	return failures + 1
}

// calculateBackoff doubles base per consecutive failure, capped at
// maxBackoff. Intervals already above the cap are left alone.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
