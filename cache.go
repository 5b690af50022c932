package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/thiremani/safec/config"
)

const (
	OUTPUT_DIR  = "out"
	OUTPUT_FILE = "output"
	HASH_FILE   = ".hash"
	REPORT_FILE = "report"
	ERRORS_FILE = ".errors"
)

// defaultCache returns SAFECCACHE, or the per-user cache directory of the
// platform.
func defaultCache() string {
	if env := os.Getenv("SAFECCACHE"); env != "" {
		return env
	}

	homeDir, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "safec")
		}
		return filepath.Join(homeDir, "AppData", "Local", "safec")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "safec")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "safec")
		}
		return filepath.Join(homeDir, ".cache", "safec")
	}
}

// isHashDir returns true if name is an 8-char hex string (matches cacheKey format).
func isHashDir(name string) bool {
	if len(name) != 8 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

// cacheKey hashes everything that determines the output of one
// instrumentation: source, policy, output kind and tool version.
// Returns short hash (8 chars for directory name) and full hash (for collision check).
func cacheKey(file string, src []byte, opts config.Options, emit, report string) (shortHash, fullHash string, err error) {
	h := sha256.New()
	policy, err := yaml.Marshal(opts)
	if err != nil {
		return "", "", fmt.Errorf("encode options: %w", err)
	}
	for _, part := range []string{Version, emit, report, file} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(policy)
	h.Write(src)
	if err := runtimeHash(h); err != nil {
		return "", "", fmt.Errorf("walk embedded runtime: %w", err)
	}
	fullHash = hex.EncodeToString(h.Sum(nil))
	return fullHash[:8], fullHash, nil
}

// Entry is one cached instrumentation result.
type Entry struct {
	Output []byte
	Report []byte
	Errors int
}

// Cache stores instrumentation results under dir. A file lock makes
// concurrent processes see either a complete entry or none.
type Cache struct {
	dir string
}

func OpenCache(cacheDir string) (*Cache, error) {
	dir := filepath.Join(cacheDir, OUTPUT_DIR)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) lock() (*flock.Flock, error) {
	lock := flock.New(filepath.Join(c.dir, ".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	return lock, nil
}

// Get returns the entry stored for fullHash, if any.
func (c *Cache) Get(shortHash, fullHash string) (*Entry, bool) {
	lock, err := c.lock()
	if err != nil {
		slog.Warn("cache unavailable", "err", err)
		return nil, false
	}
	defer lock.Unlock()

	entryDir := filepath.Join(c.dir, shortHash)
	stored, err := os.ReadFile(filepath.Join(entryDir, HASH_FILE))
	if err != nil {
		return nil, false
	}
	if string(stored) != fullHash {
		// Hash collision or corrupted cache
		slog.Debug("cache hash mismatch", "dir", entryDir)
		return nil, false
	}
	e := &Entry{}
	if e.Output, err = os.ReadFile(filepath.Join(entryDir, OUTPUT_FILE)); err != nil {
		return nil, false
	}
	if e.Report, err = os.ReadFile(filepath.Join(entryDir, REPORT_FILE)); err != nil {
		return nil, false
	}
	if n, err := os.ReadFile(filepath.Join(entryDir, ERRORS_FILE)); err == nil {
		fmt.Sscan(string(n), &e.Errors)
	}
	slog.Debug("using cached output", "dir", entryDir)
	return e, true
}

// Put stores e for fullHash, replacing whatever was there.
func (c *Cache) Put(shortHash, fullHash string, e *Entry) error {
	lock, err := c.lock()
	if err != nil {
		return err
	}
	defer lock.Unlock()

	// Cleanup old entries (keep 64 most recent, only delete if older than 1 week)
	cleanupOldEntries(c.dir, 64, 7*24*60*60)

	entryDir := filepath.Join(c.dir, shortHash)
	os.RemoveAll(entryDir)
	if err := os.MkdirAll(entryDir, 0755); err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	files := map[string][]byte{
		OUTPUT_FILE: e.Output,
		REPORT_FILE: e.Report,
		ERRORS_FILE: []byte(fmt.Sprint(e.Errors)),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(entryDir, name), data, 0644); err != nil {
			return fmt.Errorf("write cache entry: %w", err)
		}
	}
	// Store full hash last (acts as completion marker)
	if err := os.WriteFile(filepath.Join(entryDir, HASH_FILE), []byte(fullHash), 0644); err != nil {
		return fmt.Errorf("write hash file: %w", err)
	}
	return nil
}

// Clean removes every cached entry.
func (c *Cache) Clean() error {
	lock, err := c.lock()
	if err != nil {
		return err
	}
	defer lock.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() && isHashDir(e.Name()) {
			errs = append(errs, os.RemoveAll(filepath.Join(c.dir, e.Name())))
		}
	}
	return errors.Join(errs...)
}

// cleanupOldEntries removes old cache entries.
// Only deletes directories older than minAge AND keeps at least 'keep' most recent.
// This prevents deleting entries that may still be read by concurrent processes.
func cleanupOldEntries(dir string, keep int, minAge int64) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) <= keep {
		return
	}

	type dirInfo struct {
		name  string
		mtime int64
	}
	var dirs []dirInfo
	for _, e := range entries {
		if e.IsDir() && isHashDir(e.Name()) {
			if info, err := e.Info(); err == nil {
				dirs = append(dirs, dirInfo{e.Name(), info.ModTime().Unix()})
			}
		}
	}

	if len(dirs) <= keep {
		return
	}

	// Sort by mtime ascending (oldest first), remove oldest if older than minAge
	cutoff := time.Now().Unix() - minAge
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime < dirs[j].mtime })
	for i := 0; i < len(dirs)-keep; i++ {
		if dirs[i].mtime < cutoff {
			path := filepath.Join(dir, dirs[i].name)
			if err := os.RemoveAll(path); err != nil {
				slog.Warn("failed to remove old cache entry", "path", path, "err", err)
			}
		}
	}
}
