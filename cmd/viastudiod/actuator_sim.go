package main

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/charmbracelet/harmonica"
)

// simArticulation is an in-process articulation used when no hardware is
// attached. With a spring configured each joint chases its commanded position
// through a damped harmonic spring stepped once per Apply; otherwise joints
// snap to the command.
type simArticulation struct {
	logger *slog.Logger

	spring    harmonica.Spring
	useSpring bool

	pos []float64
	vel []float64
}

func newSimArticulation(dim int, cfg SimConfig, physicsHz int, logger *slog.Logger) *simArticulation {
	s := &simArticulation{
		logger: logger,
		pos:    make([]float64, dim),
		vel:    make([]float64, dim),
	}
	for i := 0; i < dim && i < len(cfg.InitialDeg); i++ {
		s.pos[i] = cfg.InitialDeg[i] * math.Pi / 180.0
	}
	if cfg.SpringFrequency > 0 {
		s.spring = harmonica.NewSpring(harmonica.FPS(physicsHz), cfg.SpringFrequency, cfg.SpringDamping)
		s.useSpring = true
	}
	logger.Debug("sim articulation ready", "joints", dim, "spring", s.useSpring,
		"frequency", cfg.SpringFrequency, "damping", cfg.SpringDamping)
	return s
}

func (s *simArticulation) CurrentPositions() ([]float64, error) {
	out := make([]float64, len(s.pos))
	copy(out, s.pos)
	return out, nil
}

func (s *simArticulation) Apply(positions, velocities []float64) error {
	if len(positions) != len(s.pos) {
		return fmt.Errorf("sim apply: got %d positions, want %d", len(positions), len(s.pos))
	}

	if !s.useSpring {
		copy(s.pos, positions)
		if len(velocities) == len(s.vel) {
			copy(s.vel, velocities)
		}
		return nil
	}

	for i, target := range positions {
		s.pos[i], s.vel[i] = s.spring.Update(s.pos[i], s.vel[i], target)
	}
	return nil
}

func (s *simArticulation) Close() error { return nil }
