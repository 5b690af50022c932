package main

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"hash"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const RUNTIME_DIR = "runtime"

//go:embed runtime
var runtimeFS embed.FS

// runtimeHash hashes every embedded runtime file. Instrumented code only
// links against a runtime whose check-failure entry point matches, so the
// hash is part of every cache key.
func runtimeHash(h hash.Hash) error {
	return fs.WalkDir(runtimeFS, RUNTIME_DIR, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		data, err := runtimeFS.ReadFile(path)
		if err != nil {
			return err
		}
		h.Write([]byte(path))
		h.Write(data)
		return nil
	})
}

// runtimeID is the short hash naming the current runtime sources.
func runtimeID() (string, error) {
	h := sha256.New()
	if err := runtimeHash(h); err != nil {
		return "", fmt.Errorf("walk embedded runtime: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil))[:8], nil
}

// extractRuntime writes the embedded runtime files to rtDir.
func extractRuntime(rtDir string) error {
	if err := os.MkdirAll(rtDir, 0755); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	return fs.WalkDir(runtimeFS, RUNTIME_DIR, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		relPath, _ := filepath.Rel(RUNTIME_DIR, path)
		destPath := filepath.Join(rtDir, relPath)
		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}
		data, err := runtimeFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read embedded %s: %w", path, err)
		}
		slog.Debug("extract runtime", "file", destPath)
		return os.WriteFile(destPath, data, 0644)
	})
}
