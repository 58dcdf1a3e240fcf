package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"github.com/mgpai22/autosub/internal/logging"
)

const lockRetryDelay = 250 * time.Millisecond

// Root returns the autosub cache directory. AUTOSUB_CACHE_DIR overrides
// the platform default.
func Root() (string, error) {
	if dir := os.Getenv("AUTOSUB_CACHE_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("resolve cache directory: %w", herr)
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "autosub"), nil
}

// Dir returns a subdirectory of the cache root, creating it.
func Dir(parts ...string) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(append([]string{root}, parts...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}
	return dir, nil
}

// Fetch downloads url to dest unless dest already exists. Concurrent
// callers across processes serialize on a lock file next to dest; the
// loser finds the finished file and returns without downloading.
func Fetch(
	ctx context.Context,
	client *http.Client,
	url, dest string,
	log *logging.Logger,
) error {
	if fileExists(dest) {
		return nil
	}
	if log == nil {
		log = logging.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	lock := flock.New(dest + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire download lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire download lock: %s is busy", dest)
	}
	// the lock file is left in place for other processes waiting on it
	defer func() { _ = lock.Unlock() }()

	if fileExists(dest) {
		return nil
	}

	log.Infow("Downloading", "url", url, "dest", dest)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp download: %w", err)
	}
	tmpPath := tmp.Name()
	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close download: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move download into place: %w", err)
	}

	log.Infow("Download complete",
		"dest", dest,
		"size", humanize.Bytes(uint64(written)),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Clear removes the named cache subdirectory, or the whole cache when no
// parts are given, and reports the number of bytes freed.
func Clear(parts ...string) (int64, error) {
	root, err := Root()
	if err != nil {
		return 0, err
	}
	target := filepath.Join(append([]string{root}, parts...)...)

	var freed int64
	err = filepath.WalkDir(target, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				freed += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan cache: %w", err)
	}

	if err := os.RemoveAll(target); err != nil {
		return 0, fmt.Errorf("remove cache: %w", err)
	}
	return freed, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
