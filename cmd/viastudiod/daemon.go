package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The daemon goroutine owns the Studio and its Scheduler. Every other
// goroutine (IPC, input devices, WebSocket) talks to it through the events
// channel, so Studio state is never shared.
//
// Each physics tick runs the scheduler callbacks once with the step size
// chosen by stepDt.
//
// ============================================================================

// runDaemon is the main daemon loop that:
//   - Receives Events from multiple sources
//   - Emits Tick events at scheduler.physics_hz
//   - Applies events against the Studio
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
//
// A running playback is cancelled on exit.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	studio *Studio,
	sched *Scheduler,
	cfg SchedulerConfig,
	logger *slog.Logger,
) {
	if studio == nil || sched == nil {
		logger.Error("daemon started without studio or scheduler")
		return
	}
	defer studio.Shutdown()

	updateInterval := time.Second / time.Duration(cfg.PhysicsHz)
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			handleEvent(studio, sched, ev, logger)

		case now := <-ticker.C:
			dt := stepDt(cfg, now.Sub(lastTick).Seconds())
			lastTick = now
			handleEvent(studio, sched, Tick{Now: now, Dt: dt}, logger)
		}
	}
}

// stepDt returns the scheduler step for a tick that arrived wall seconds
// after the previous one. With a fixed step this is always 1/physics_hz;
// otherwise wall time clamped to [0, 2/physics_hz].
func stepDt(cfg SchedulerConfig, wall float64) float64 {
	hz := float64(cfg.PhysicsHz)
	if cfg.FixedStep {
		return 1.0 / hz
	}
	maxDt := 2.0 / hz
	if wall < 0 {
		return 0
	}
	if wall > maxDt {
		return maxDt
	}
	return wall
}

// handleEvent applies a single event. Failures are logged; none of them stop
// the loop.
func handleEvent(studio *Studio, sched *Scheduler, ev Event, logger *slog.Logger) {
	switch e := ev.(type) {
	case Tick:
		sched.Step(e.Dt)

	case Play:
		if err := studio.Play(e.Name); err != nil {
			logger.Error("play failed", "trajectory", e.Name, "error", err)
		}

	case Cancel:
		if err := studio.Cancel(); err != nil {
			if errors.Is(err, errNoPlayback) {
				logger.Debug("cancel ignored", "reason", err)
				return
			}
			logger.Error("cancel failed", "error", err)
		}

	case CaptureViaPoint:
		if err := studio.CaptureViaPoint(); err != nil {
			logger.Error("capture failed", "error", err)
		}

	case RemoveViaPoint:
		if err := studio.RemoveViaPoint(); err != nil {
			logger.Warn("remove via-point failed", "error", err)
		}

	case ClearViaPoints:
		studio.ClearViaPoints()

	case SaveViaPoints:
		if err := studio.SaveViaPoints(e.Name, e.DurationS); err != nil {
			logger.Error("save via-points failed", "trajectory", e.Name, "error", err)
		}

	case RequestStateSnapshot:
		if e.Reply == nil {
			return
		}
		select {
		case e.Reply <- studio.Snapshot():
		default:
			logger.Debug("snapshot reply dropped (receiver not ready)")
		}

	default:
		logger.Warn("unhandled event", "type", fmt.Sprintf("%T", ev))
	}
}
