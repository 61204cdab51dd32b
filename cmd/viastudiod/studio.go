package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"viastudio/playback"
)

// errNoPlayback is returned by Studio.Cancel when nothing is playing.
var errNoPlayback = errors.New("no playback running")

// StudioConfig holds the static Studio settings.
type StudioConfig struct {
	JointNames       []string
	CaptureDurationS float64
}

// Studio is the point-to-point session object: it plays stored trajectories
// through a playback.Driver against an Actuator, and captures via-points from
// the live articulation.
//
// A Studio is owned by the daemon goroutine. None of its methods are safe for
// concurrent use; other goroutines reach it through the events channel.
type Studio struct {
	logger *slog.Logger
	cfg    StudioConfig

	sched    *Scheduler
	driver   *playback.Driver
	capture  *playback.Capture
	actuator Actuator
	store    TrajectoryStore

	// broadcasts may be nil (no observers). Sends never block.
	broadcasts chan<- StateBroadcast

	// Replaceable for tests.
	newSession func() string
	now        func() time.Time

	session    string
	trajectory string
}

// NewStudio wires a Studio. broadcasts may be nil.
func NewStudio(
	cfg StudioConfig,
	sched *Scheduler,
	actuator Actuator,
	store TrajectoryStore,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) *Studio {
	if cfg.CaptureDurationS <= 0 {
		cfg.CaptureDurationS = defaultCaptureDurationS
	}
	return &Studio{
		logger:     logger,
		cfg:        cfg,
		sched:      sched,
		driver:     playback.NewDriver(logger.With("component", "playback")),
		capture:    playback.NewCapture(),
		actuator:   actuator,
		store:      store,
		broadcasts: broadcasts,
		newSession: uuid.NewString,
		now:        time.Now,
	}
}

// ============================================================================
// Playback
// ============================================================================

// Play loads the named trajectory and starts it on the next physics tick.
// A running playback is cancelled first.
func (s *Studio) Play(name string) error {
	rows, err := s.store.Load(name)
	if err != nil {
		return fmt.Errorf("load %q: %w", name, err)
	}
	traj, err := playback.NewTrajectory(rows)
	if err != nil {
		return fmt.Errorf("trajectory %q: %w", name, err)
	}
	if traj.Dim() != len(s.cfg.JointNames) {
		return fmt.Errorf("trajectory %q has %d joints, articulation has %d", name, traj.Dim(), len(s.cfg.JointNames))
	}

	if s.playing() {
		s.logger.Info("replacing running playback", "session", s.session, "trajectory", s.trajectory)
		s.finish(finishCancelled, "")
	}

	if err := s.driver.Load(traj); err != nil {
		return fmt.Errorf("load driver: %w", err)
	}

	s.session = s.newSession()
	s.trajectory = name
	s.sched.Add(playbackCallbackName, s.step)

	s.logger.Info("playback started", "session", s.session, "trajectory", name,
		"segments", traj.Len(), "duration_s", traj.TotalDuration())
	s.publish(BroadcastPlaybackStarted{
		Session:   s.session,
		Name:      name,
		Segments:  traj.Len(),
		DurationS: traj.TotalDuration(),
		At:        s.now(),
	})
	return nil
}

// Cancel stops the running playback.
func (s *Studio) Cancel() error {
	if !s.playing() {
		return errNoPlayback
	}
	s.logger.Info("playback cancelled", "session", s.session, "segment", s.driver.Segment())
	s.finish(finishCancelled, "")
	return nil
}

// Shutdown cancels any running playback. Called once when the daemon stops.
func (s *Studio) Shutdown() {
	if s.playing() {
		s.finish(finishCancelled, "")
	}
}

func (s *Studio) playing() bool {
	return s.driver.State() != playback.StateIdle
}

// step is the per-tick playback callback: read the articulation, advance the
// driver, apply the resulting setpoint.
func (s *Studio) step(dt float64) {
	actual, err := s.actuator.CurrentPositions()
	if err != nil {
		s.fail(fmt.Errorf("read joint positions: %w", err))
		return
	}

	res, err := s.driver.Tick(dt, actual)
	if err != nil {
		s.fail(fmt.Errorf("tick: %w", err))
		return
	}

	if res.HasCommand {
		if err := s.actuator.Apply(res.Command.Positions, res.Command.Velocities); err != nil {
			s.fail(fmt.Errorf("apply command: %w", err))
			return
		}
		s.publish(BroadcastJointCommand{
			Session:    s.session,
			Segment:    res.Segment,
			Positions:  append([]float64(nil), res.Command.Positions...),
			Velocities: append([]float64(nil), res.Command.Velocities...),
			At:         s.now(),
		})
	}

	if res.Done {
		s.logger.Info("playback complete", "session", s.session, "trajectory", s.trajectory)
		s.finish(finishComplete, "")
		return
	}

	if res.SegmentEnded {
		s.logger.Debug("segment finished", "session", s.session, "segment", res.Segment, "status", res.Status.String())
		s.publish(BroadcastSegmentChanged{
			Session:  s.session,
			Segment:  s.driver.Segment(),
			Segments: s.driver.Segments(),
			At:       s.now(),
		})
	}
}

func (s *Studio) fail(err error) {
	s.logger.Error("playback aborted", "session", s.session, "error", err)
	s.finish(finishError, err.Error())
}

// finish tears down the running playback and announces why.
func (s *Studio) finish(reason, errMsg string) {
	s.sched.Remove(playbackCallbackName)
	s.driver.Cancel()

	s.publish(BroadcastPlaybackFinished{
		Session: s.session,
		Reason:  reason,
		Error:   errMsg,
		At:      s.now(),
	})
	s.session = ""
	s.trajectory = ""
}

// ============================================================================
// Via-point capture
// ============================================================================

// CaptureViaPoint records the current joint positions.
func (s *Studio) CaptureViaPoint() error {
	pos, err := s.actuator.CurrentPositions()
	if err != nil {
		return fmt.Errorf("read joint positions: %w", err)
	}
	if len(pos) > len(s.cfg.JointNames) {
		pos = pos[:len(s.cfg.JointNames)]
	}
	s.capture.Add(pos)

	deg := s.capture.Degrees()
	s.logger.Info("via-point captured", "count", len(deg), "deg", deg[len(deg)-1])
	s.publishViaPoints(deg)
	return nil
}

// RemoveViaPoint drops the last captured via-point.
func (s *Studio) RemoveViaPoint() error {
	if err := s.capture.RemoveLast(); err != nil {
		return err
	}
	s.logger.Info("via-point removed", "count", s.capture.Len())
	s.publishViaPoints(s.capture.Degrees())
	return nil
}

// ClearViaPoints drops all captured via-points.
func (s *Studio) ClearViaPoints() {
	s.capture.Clear()
	s.logger.Info("via-points cleared")
	s.publishViaPoints(nil)
}

// SaveViaPoints stores the captured via-points as trajectory name. Every
// point gets durationS as its arrival time, or the configured default when
// durationS <= 0.
func (s *Studio) SaveViaPoints(name string, durationS float64) error {
	if s.capture.Len() == 0 {
		return playback.ErrCaptureEmpty
	}
	if durationS <= 0 {
		durationS = s.cfg.CaptureDurationS
	}
	rows := s.capture.Rows(durationS)
	if err := s.store.Save(name, s.cfg.JointNames, rows); err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	s.logger.Info("via-points saved", "trajectory", name, "rows", len(rows), "duration_s", durationS)
	return nil
}

// ============================================================================
// Observers
// ============================================================================

// Snapshot returns a copy of the current studio state.
func (s *Studio) Snapshot() StateSnapshot {
	return StateSnapshot{
		State:      s.driver.State().String(),
		Session:    s.session,
		Trajectory: s.trajectory,
		Segment:    s.driver.Segment(),
		Segments:   s.driver.Segments(),
		ElapsedS:   s.driver.Elapsed(),
		JointNames: append([]string(nil), s.cfg.JointNames...),
		ViaPoints:  s.capture.Degrees(),
		At:         s.now(),
	}
}

func (s *Studio) publishViaPoints(deg [][]float64) {
	s.publish(BroadcastViaPointsChanged{Points: deg, At: s.now()})
}

func (s *Studio) publish(b StateBroadcast) {
	if s.broadcasts == nil {
		return
	}
	select {
	case s.broadcasts <- b:
	default:
		s.logger.Debug("broadcast queue full, dropping", "type", fmt.Sprintf("%T", b))
	}
}
