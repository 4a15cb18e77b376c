package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ShopCatalog/internal/catalog"
)

const (
	filePrefix = "catalog-"
	fileSuffix = ".tmp"
)

// FileStore keeps snapshots as catalog-<unixmillis>.tmp files in one directory.
type FileStore struct {
	dir string
	log *zap.Logger
	now func() time.Time
}

func NewFileStore(dir string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{dir: dir, log: log, now: time.Now}
}

func (s *FileStore) Dump(ctx context.Context, entries []catalog.Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := s.now()
	data, err := Encode(entries, now)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}

	// Two dumps within one millisecond get consecutive stamps.
	ms := now.UnixMilli()
	for {
		name := filepath.Join(s.dir, filePrefix+strconv.FormatInt(ms, 10)+fileSuffix)
		if _, err := os.Stat(name); err == nil {
			ms++
			continue
		}
		if err := os.Rename(tmp.Name(), name); err != nil {
			return "", fmt.Errorf("publish snapshot: %w", err)
		}
		return filepath.Base(name), nil
	}
}

// Restore reads the newest snapshot and deletes it. A snapshot that cannot
// be decoded is left on disk.
func (s *FileStore) Restore(ctx context.Context) ([]catalog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, ok, err := s.newest()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, catalog.ErrNoSnapshot
	}

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	entries, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	if err := os.Remove(path); err != nil {
		s.log.Warn("remove restored snapshot failed", zap.String("file", name), zap.Error(err))
	}
	return entries, nil
}

func (s *FileStore) newest() (string, bool, error) {
	des, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("list snapshots: %w", err)
	}

	var (
		best   string
		bestMs int64 = -1
	)
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), 10, 64)
		if err != nil {
			continue
		}
		if ms > bestMs {
			best, bestMs = name, ms
		}
	}
	return best, bestMs >= 0, nil
}
