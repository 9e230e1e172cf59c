// Package archive writes append-only daily snapshots of resolved deals for
// historical tracking. Archival is best-effort: it never blocks the primary
// data update.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sips-and-steals/deals-cli/internal/model"
)

const dateLayout = "20060102"

// snapshot is the on-disk shape of one (restaurant, date) archive file.
type snapshot struct {
	Slug       string       `json:"slug"`
	Date       string       `json:"date"`
	ArchivedAt time.Time    `json:"archived_at"`
	Deals      []model.Deal `json:"deals"`
}

// Writer archives deals under dir as <slug>_<YYYYMMDD>.json.
type Writer struct {
	dir     string
	nowFunc func() time.Time
}

// New creates the archive directory if needed.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "archive: create dir %s", dir)
	}
	return &Writer{dir: dir, nowFunc: time.Now}, nil
}

// WithNow overrides the clock, for tests.
func (w *Writer) WithNow(now func() time.Time) *Writer {
	w.nowFunc = now
	return w
}

// Write stores today's snapshot for the slug. A snapshot that already
// exists for the day is left untouched: the archive is append-only and a
// re-run must not rewrite history.
func (w *Writer) Write(slug string, deals []model.Deal) error {
	now := w.nowFunc()
	date := now.Format(dateLayout)
	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", slug, date))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			zap.L().Debug("archive: snapshot exists, keeping original",
				zap.String("slug", slug),
				zap.String("date", date),
			)
			return nil
		}
		return eris.Wrapf(err, "archive: create %s", path)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot{
		Slug:       slug,
		Date:       date,
		ArchivedAt: now.UTC(),
		Deals:      deals,
	}); err != nil {
		f.Close()
		os.Remove(path)
		return eris.Wrapf(err, "archive: write %s", path)
	}
	return eris.Wrapf(f.Close(), "archive: close %s", path)
}

// Read loads one archived snapshot.
func (w *Writer) Read(slug string, date time.Time) ([]model.Deal, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", slug, date.Format(dateLayout)))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "archive: read %s", path)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrapf(err, "archive: parse %s", path)
	}
	return snap.Deals, nil
}

// Prune removes snapshots older than daysToKeep and reports how many were
// deleted. Files that do not look like snapshots are left alone.
func (w *Writer) Prune(daysToKeep int) (int, error) {
	if daysToKeep <= 0 {
		return 0, nil
	}
	cutoff := w.nowFunc().AddDate(0, 0, -daysToKeep).Format(dateLayout)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, eris.Wrap(err, "archive: list snapshots")
	}

	removed := 0
	for _, e := range entries {
		date, ok := snapshotDate(e.Name())
		if !ok || date >= cutoff {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, e.Name())); err != nil {
			return removed, eris.Wrapf(err, "archive: remove %s", e.Name())
		}
		removed++
	}

	if removed > 0 {
		zap.L().Info("archive: pruned snapshots", zap.Int("removed", removed))
	}
	return removed, nil
}

// snapshotDate extracts the YYYYMMDD suffix from <slug>_<YYYYMMDD>.json.
// Slugs may themselves contain underscores, so only the last segment counts.
func snapshotDate(name string) (string, bool) {
	if !strings.HasSuffix(name, ".json") {
		return "", false
	}
	base := strings.TrimSuffix(name, ".json")
	i := strings.LastIndex(base, "_")
	if i < 0 {
		return "", false
	}
	date := base[i+1:]
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", false
	}
	return date, true
}
