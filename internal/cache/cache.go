// Package cache implements a local filesystem page cache keyed by URL.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the filesystem page cache.
type Config struct {
	// BaseDir is the root directory where cached pages are stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// PageCache stores fetched page bodies on the local filesystem so detail
// pages staged by an earlier fetch can be re-read without a network round
// trip. Entries never expire; a run that wants fresh pages clears the
// directory.
type PageCache struct {
	baseDir string
}

// New creates a filesystem-backed page cache rooted at cfg.BaseDir.
func New(cfg Config) (*PageCache, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &PageCache{baseDir: cfg.BaseDir}, nil
}

// Get returns the cached body for url, if present.
func (c *PageCache) Get(url string) ([]byte, bool) {
	body, err := os.ReadFile(c.path(url))
	if err != nil {
		return nil, false
	}
	return body, true
}

// Put stores the body for url, replacing any previous entry.
func (c *PageCache) Put(url string, body []byte) error {
	if err := os.WriteFile(c.path(url), body, 0o600); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Clear removes every cached page, leaving the directory in place.
func (c *PageCache) Clear() error {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		if err := os.Remove(filepath.Join(c.baseDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove cache entry: %w", err)
		}
	}
	return nil
}

// path derives a flat filename from the URL hash so arbitrary URLs cannot
// escape the base directory.
func (c *PageCache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.baseDir, hex.EncodeToString(sum[:])+".html")
}
