package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"viastudio/playback"
)

// groupSuffix is appended to a trajectory name to form its directory.
const groupSuffix = "_group"

// fileStore keeps one directory per trajectory:
//
//	<dir>/<name>_group/<file_name>
type fileStore struct {
	dir      string
	fileName string
	logger   *slog.Logger
}

func newFileStore(cfg FileStoreConfig, logger *slog.Logger) (*fileStore, error) {
	dir := ExpandPath(cfg.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trajectory dir: %w", err)
	}
	logger.Debug("file store ready", "dir", dir, "file_name", cfg.FileName)
	return &fileStore{dir: dir, fileName: cfg.FileName, logger: logger}, nil
}

func (s *fileStore) path(name string) string {
	return filepath.Join(s.dir, name+groupSuffix, s.fileName)
}

func (s *fileStore) Load(name string) ([]playback.Row, error) {
	if err := validateTrajectoryName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTrajectoryNotFound, name)
		}
		return nil, fmt.Errorf("open trajectory: %w", err)
	}
	defer f.Close()

	rows, err := playback.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Name(), err)
	}
	return rows, nil
}

// Save writes the table to a temp file and renames it into place.
func (s *fileStore) Save(name string, jointNames []string, rows []playback.Row) error {
	if err := validateTrajectoryName(name); err != nil {
		return err
	}
	dst := s.path(name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create trajectory folder: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+s.fileName+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := playback.WriteCSV(tmp, jointNames, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	s.logger.Debug("trajectory saved", "path", dst, "rows", len(rows))
	return nil
}

func (s *fileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read trajectory dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), groupSuffix) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), groupSuffix)
		if _, err := os.Stat(s.path(name)); err == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *fileStore) Close() error { return nil }
