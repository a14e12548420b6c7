package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-media-bot/internal/linkresolver"
	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
)

// scratchPath returns a collision-free file path in the scratch directory.
// Random suffixes keep concurrent downloads from ever sharing a file.
func scratchPath(dir string, service linkresolver.Service, ext string) string {
	name := fmt.Sprintf("%s_%s", strings.ToLower(string(service)), uuid.New().String())
	if ext != "" {
		name += "." + ext
	}

	return filepath.Join(dir, name)
}

// checkSize verifies the on-disk file against the ceiling. Oversized files
// are deleted before reporting; the probe before download is advisory only,
// this check is authoritative.
func checkSize(path string, maxBytes int64) (tooLarge bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat downloaded file: %w", err)
	}

	if maxBytes > 0 && info.Size() > maxBytes {
		_ = os.Remove(path)

		return true, nil
	}

	return false, nil
}

// Cleanup removes a scratch file, tolerating files already gone. Safe to
// defer on every exit path.
func Cleanup(path string) {
	if path == "" {
		return
	}

	// Failures are tolerated; leftovers are swept by the scratch watchdog.
	_ = os.Remove(path)
}

// SweepScratch removes files in the scratch directory older than maxAge.
// Crashed tasks and killed processes leave orphans behind; the watchdog
// keeps the directory from filling the disk.
func SweepScratch(dir string, maxAge time.Duration, logger *zerolog.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("scratch sweep failed to read directory")

		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("scratch sweep failed to remove file")
			continue
		}

		removed++

		observability.ScratchFilesRemoved.Inc()
	}

	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("scratch sweep removed leftover files")
	}

	return removed
}
