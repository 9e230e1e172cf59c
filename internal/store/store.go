// Package store persists the restaurant master data and live deal snapshots
// as JSON files, with atomic writes, timestamped backups, and a lock file
// serializing concurrent runs. It also hosts the SQLite fetch cache.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sips-and-steals/deals-cli/internal/config"
	"github.com/sips-and-steals/deals-cli/internal/model"
)

const (
	restaurantsFile = "restaurants.json"
	liveDealsFile   = "live_deals.json"
	lockFile        = ".deals-cli.lock"
	backupDirName   = "backups"
)

// restaurantsDoc is the on-disk shape of the master store: restaurants
// grouped by area, keyed by slug.
type restaurantsDoc struct {
	Metadata masterMetadata                         `json:"metadata"`
	Areas    map[string]map[string]model.Restaurant `json:"areas"`
}

type masterMetadata struct {
	UpdatedAt time.Time `json:"updated_at"`
	Districts []string  `json:"districts"`
}

// Store reads and writes the JSON data files under one data directory.
// The master store is read once at startup and written once at the end of
// a run; concurrent runs are serialized by the lock file, not by the Store.
type Store struct {
	dataDir    string
	maxBackups int
	nowFunc    func() time.Time
}

// New creates a Store rooted at cfg.DataDir, creating the directory tree.
func New(cfg config.StoreConfig) (*Store, error) {
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 10
	}
	s := &Store{dataDir: cfg.DataDir, maxBackups: maxBackups, nowFunc: time.Now}

	if err := os.MkdirAll(filepath.Join(s.dataDir, backupDirName), 0o755); err != nil {
		return nil, eris.Wrapf(err, "store: create data dir %s", s.dataDir)
	}
	return s, nil
}

// WithNow overrides the clock, for tests.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.nowFunc = now
	return s
}

// Lock acquires the run lock. A second concurrent run fails fast instead of
// racing the first one's writes.
func (s *Store) Lock() error {
	path := filepath.Join(s.dataDir, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return eris.Errorf("store: another run holds the lock at %s", path)
		}
		return eris.Wrap(err, "store: acquire lock")
	}
	fmt.Fprintf(f, "pid %d at %s\n", os.Getpid(), s.nowFunc().Format(time.RFC3339))
	return eris.Wrap(f.Close(), "store: write lock")
}

// Unlock releases the run lock.
func (s *Store) Unlock() error {
	err := os.Remove(filepath.Join(s.dataDir, lockFile))
	if err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "store: release lock")
	}
	return nil
}

// LoadRestaurants reads the master store. A missing file is an empty
// dataset, not an error.
func (s *Store) LoadRestaurants() (map[string]model.Restaurant, error) {
	path := filepath.Join(s.dataDir, restaurantsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("store: no restaurants file", zap.String("path", path))
			return map[string]model.Restaurant{}, nil
		}
		return nil, eris.Wrapf(err, "store: read %s", path)
	}

	var doc restaurantsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "store: parse %s", path)
	}

	restaurants := make(map[string]model.Restaurant)
	for area, bySlug := range doc.Areas {
		for slug, r := range bySlug {
			if r.Slug == "" {
				r.Slug = slug
			}
			if r.District == "" {
				r.District = area
			}
			restaurants[slug] = r
		}
	}

	zap.L().Info("store: restaurants loaded", zap.Int("count", len(restaurants)))
	return restaurants, nil
}

// SaveRestaurants writes the master store grouped by district, atomically.
func (s *Store) SaveRestaurants(restaurants map[string]model.Restaurant) error {
	doc := restaurantsDoc{
		Metadata: masterMetadata{UpdatedAt: s.nowFunc().UTC()},
		Areas:    make(map[string]map[string]model.Restaurant),
	}
	for slug, r := range restaurants {
		area := r.District
		if area == "" {
			area = "unknown"
		}
		if doc.Areas[area] == nil {
			doc.Areas[area] = make(map[string]model.Restaurant)
			doc.Metadata.Districts = append(doc.Metadata.Districts, area)
		}
		doc.Areas[area][slug] = r
	}
	sort.Strings(doc.Metadata.Districts)

	return s.writeJSON(restaurantsFile, doc)
}

// LoadLiveDeals reads the live deal snapshots keyed by slug.
func (s *Store) LoadLiveDeals() (map[string]model.LiveDealSet, error) {
	path := filepath.Join(s.dataDir, liveDealsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.LiveDealSet{}, nil
		}
		return nil, eris.Wrapf(err, "store: read %s", path)
	}

	live := make(map[string]model.LiveDealSet)
	if err := json.Unmarshal(data, &live); err != nil {
		return nil, eris.Wrapf(err, "store: parse %s", path)
	}
	return live, nil
}

// SaveLiveDeals writes the live deal snapshots atomically.
func (s *Store) SaveLiveDeals(live map[string]model.LiveDealSet) error {
	return s.writeJSON(liveDealsFile, live)
}

// Backup copies the current data files into a timestamped subdirectory and
// prunes old backups beyond the retention limit.
func (s *Store) Backup() error {
	stamp := s.nowFunc().Format("20060102_150405")
	dir := filepath.Join(s.dataDir, backupDirName, "backup_"+stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "store: create backup dir")
	}

	for _, name := range []string{restaurantsFile, liveDealsFile} {
		src := filepath.Join(s.dataDir, name)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(src, filepath.Join(dir, name)); err != nil {
			return eris.Wrapf(err, "store: backup %s", name)
		}
	}

	return s.pruneBackups()
}

func (s *Store) pruneBackups() error {
	root := filepath.Join(s.dataDir, backupDirName)
	entries, err := os.ReadDir(root)
	if err != nil {
		return eris.Wrap(err, "store: list backups")
	}

	var backups []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "backup_") {
			backups = append(backups, e.Name())
		}
	}
	sort.Strings(backups)

	for len(backups) > s.maxBackups {
		victim := filepath.Join(root, backups[0])
		if err := os.RemoveAll(victim); err != nil {
			return eris.Wrapf(err, "store: prune backup %s", victim)
		}
		zap.L().Debug("store: pruned backup", zap.String("dir", victim))
		backups = backups[1:]
	}
	return nil
}

// writeJSON writes to a temp file in the same directory and renames into
// place. A crash mid-write leaves the previous file intact; the rename is
// the commit point.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "store: marshal %s", name)
	}

	path := filepath.Join(s.dataDir, name)
	tmp, err := os.CreateTemp(s.dataDir, name+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "store: create temp for %s", name)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return eris.Wrapf(err, "store: write temp for %s", name)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return eris.Wrapf(err, "store: sync temp for %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return eris.Wrapf(err, "store: close temp for %s", name)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return eris.Wrapf(err, "store: rename %s into place", name)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
