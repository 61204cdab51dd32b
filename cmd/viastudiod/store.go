package main

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"viastudio/playback"
)

// ErrTrajectoryNotFound is returned by TrajectoryStore.Load for unknown names.
var ErrTrajectoryNotFound = errors.New("trajectory not found")

// TrajectoryStore persists via-point tables by name.
type TrajectoryStore interface {
	Load(name string) ([]playback.Row, error)
	Save(name string, jointNames []string, rows []playback.Row) error
	List() ([]string, error)
	Close() error
}

var trajectoryNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// validateTrajectoryName rejects names that could escape the store namespace
// (path separators, "..", empty).
func validateTrajectoryName(name string) error {
	if !trajectoryNameRe.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid trajectory name %q", name)
	}
	return nil
}

// newTrajectoryStore builds the backend selected in cfg.
func newTrajectoryStore(cfg StoreConfig, logger *slog.Logger) (TrajectoryStore, error) {
	switch cfg.Backend {
	case storeBackendFile:
		s, err := newFileStore(cfg.File, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case storeBackendRedis:
		s, err := newRedisStore(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
