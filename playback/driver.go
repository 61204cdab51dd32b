package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"viastudio/spline"
)

var (
	// ErrNotLoaded is returned by Tick when no trajectory is loaded.
	ErrNotLoaded = errors.New("playback: no trajectory loaded")

	// ErrInvalidState is returned by Load outside the Idle state.
	ErrInvalidState = errors.New("playback: invalid driver state")
)

// State is the driver lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateSegmentActive
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateSegmentActive:
		return "segment_active"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Command is a joint-space setpoint. The slices are owned by the Driver and
// only valid until the next Tick.
type Command struct {
	Positions  []float64
	Velocities []float64
}

// TickResult describes what happened during one Tick.
type TickResult struct {
	Command    Command
	HasCommand bool
	Status     spline.Status

	// SegmentEnded is set on the tick that finished (or skipped) Segment.
	SegmentEnded bool
	Segment      int
	Done         bool
}

// Driver plays a Trajectory one segment at a time. For every segment it
// rebuilds a four-point window from the actual joint positions to the segment
// target, with both ends duplicated so the end tangents are zero. Velocity is
// therefore zero at every via-point: the profile is stop-and-go.
//
// A Driver is not safe for concurrent use.
type Driver struct {
	log *slog.Logger

	state   State
	traj    Trajectory
	ring    *spline.Ring
	segment int
	elapsed float64
	active  bool

	pos []float64
	vel []float64
}

// NewDriver returns an idle driver. A nil logger discards output.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Driver{log: logger}
}

// Load prepares traj for playback. Only valid from StateIdle.
func (d *Driver) Load(traj Trajectory) error {
	if d.state != StateIdle {
		return fmt.Errorf("%w: load in state %s", ErrInvalidState, d.state)
	}
	if traj.Len() == 0 {
		return ErrTrajectoryEmpty
	}

	d.traj = traj
	d.ring = spline.NewRing(traj.Dim())
	d.pos = make([]float64, traj.Dim())
	d.vel = make([]float64, traj.Dim())
	d.segment = 0
	d.elapsed = 0
	d.active = false
	d.state = StateLoaded

	d.log.Debug("Trajectory loaded", "segments", traj.Len(), "joints", traj.Dim(), "duration_s", traj.TotalDuration())
	return nil
}

// Tick advances playback by dt seconds. actual holds the measured joint
// positions and must have at least Dim() entries; extra entries are ignored.
func (d *Driver) Tick(dt float64, actual []float64) (TickResult, error) {
	switch d.state {
	case StateIdle:
		return TickResult{}, ErrNotLoaded
	case StateComplete:
		return TickResult{Segment: d.segment, Done: true}, nil
	}

	dim := d.traj.Dim()
	if len(actual) < dim {
		return TickResult{}, fmt.Errorf("actual positions: %w: got %d, want %d", spline.ErrDimensionMismatch, len(actual), dim)
	}
	actual = actual[:dim]

	if d.segment >= d.traj.Len() {
		d.finish()
		return TickResult{Segment: d.segment, Done: true}, nil
	}

	target := d.traj.At(d.segment)
	if !d.active {
		if err := d.buildWindow(actual, target); err != nil {
			return TickResult{}, err
		}
	}

	// Negative and NaN steps hold time still.
	if !(dt > 0) {
		dt = 0
	}
	d.elapsed += dt
	t := min(d.elapsed, target.DurationS)
	t = max(t, 0)

	res := TickResult{Segment: d.segment}
	res.Status = spline.Evaluate(d.ring, t*1000.0, d.pos, d.vel)
	if res.Status == spline.StatusOK {
		res.HasCommand = true
		res.Command = Command{Positions: d.pos, Velocities: d.vel}
	}

	switch res.Status {
	case spline.StatusDegenerate:
		d.log.Warn("Skipping degenerate segment", "segment", d.segment, "duration_s", target.DurationS)
	case spline.StatusInsufficientData:
		d.log.Error("Window not ready", "segment", d.segment, "ring", d.ring.String())
	}

	if d.elapsed >= target.DurationS ||
		res.Status == spline.StatusAfterSegment ||
		res.Status == spline.StatusDegenerate {
		res.SegmentEnded = true
		d.segment++
		d.elapsed = 0
		d.active = false
		if d.segment >= d.traj.Len() {
			d.finish()
			res.Done = true
		}
	}

	return res, nil
}

// buildWindow pushes actual, actual, target, target onto the ring.
func (d *Driver) buildWindow(actual []float64, target spline.ViaPoint) error {
	pushes := [spline.BufferSize]spline.ViaPoint{
		{DurationS: 0, Positions: actual},
		{DurationS: 0, Positions: actual},
		{DurationS: target.DurationS, Positions: target.Positions},
		{DurationS: 0, Positions: target.Positions},
	}
	for _, p := range pushes {
		if err := d.ring.PushBack(p.DurationS, p.Positions); err != nil {
			return fmt.Errorf("build window for segment %d: %w", d.segment, err)
		}
	}

	d.active = true
	d.elapsed = 0
	d.state = StateSegmentActive
	d.log.Debug("Segment started", "segment", d.segment, "duration_s", target.DurationS, "head", d.ring.Head())
	return nil
}

func (d *Driver) finish() {
	d.state = StateComplete
	d.active = false
	d.log.Debug("Trajectory complete", "segments", d.traj.Len())
}

// Cancel discards the loaded trajectory and returns to StateIdle.
func (d *Driver) Cancel() {
	if d.state == StateIdle {
		return
	}
	d.state = StateIdle
	d.traj = Trajectory{}
	d.ring = nil
	d.pos = nil
	d.vel = nil
	d.segment = 0
	d.elapsed = 0
	d.active = false
}

// State returns the current lifecycle state.
func (d *Driver) State() State { return d.state }

// Segment returns the index of the segment being played.
func (d *Driver) Segment() int { return d.segment }

// Segments returns the number of segments in the loaded trajectory.
func (d *Driver) Segments() int { return d.traj.Len() }

// Elapsed returns the time spent in the current segment in seconds.
func (d *Driver) Elapsed() float64 { return d.elapsed }

// Dim returns the joint count of the loaded trajectory.
func (d *Driver) Dim() int { return d.traj.Dim() }

// Window exposes the interpolation window for inspection. It is nil while idle.
func (d *Driver) Window() *spline.Ring { return d.ring }
