package main

import (
	"fmt"
	"log/slog"
)

// Actuator is the articulation being driven: it reports measured joint
// positions and accepts position/velocity setpoints. Both slices are radians
// (and rad/s) in joint order; implementations must not retain them.
type Actuator interface {
	CurrentPositions() ([]float64, error)
	Apply(positions, velocities []float64) error
	Close() error
}

// newActuator builds the backend selected in cfg.
func newActuator(cfg Config, logger *slog.Logger) (Actuator, error) {
	dim := len(cfg.Robot.JointNames)

	switch cfg.Actuator.Backend {
	case actuatorBackendSim:
		return newSimArticulation(dim, cfg.Actuator.Sim, cfg.Scheduler.PhysicsHz, logger), nil

	case actuatorBackendPLC:
		a, err := newPLCActuator(dim, cfg.Actuator.PLC, logger)
		if err != nil {
			return nil, err
		}
		return a, nil

	default:
		return nil, fmt.Errorf("unknown actuator backend %q", cfg.Actuator.Backend)
	}
}
