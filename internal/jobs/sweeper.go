package jobs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"imgvault/api/internal/ratelimit"
)

// Sweeper runs the periodic housekeeping: spooled upload files that
// outlived their ingestion attempt are removed, and the in-memory
// rate-limit map is pruned of expired windows.
type Sweeper struct {
	cron      *cron.Cron
	tmpDir    string
	tmpMaxAge time.Duration
	counters  *ratelimit.MemoryStore // nil when the redis backend is in use
	log       zerolog.Logger
}

func NewSweeper(tmpDir string, tmpMaxAge time.Duration, counters *ratelimit.MemoryStore, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		cron:      cron.New(),
		tmpDir:    tmpDir,
		tmpMaxAge: tmpMaxAge,
		counters:  counters,
		log:       log,
	}
}

func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.sweepTmp); err != nil {
		return err
	}
	if s.counters != nil {
		if _, err := s.cron.AddFunc("*/2 * * * *", s.sweepCounters); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits briefly for a running sweep to
// finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

// sweepTmp removes spool files older than the configured max age. A
// file vanishing mid-sweep is fine; something else cleaned it first.
func (s *Sweeper) sweepTmp() {
	entries, err := os.ReadDir(s.tmpDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("dir", s.tmpDir).Msg("tmp sweep failed")
		}
		return
	}

	cutoff := time.Now().Add(-s.tmpMaxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.tmpDir, entry.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		s.log.Debug().Int("removed", removed).Msg("swept stale tmp files")
	}
}

func (s *Sweeper) sweepCounters() {
	// Day-window quota counters are the longest-lived entries.
	s.counters.Sweep(24*time.Hour + time.Hour)
}
