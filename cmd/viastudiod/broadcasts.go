package main

import "time"

// StateBroadcast is a marker interface for state changes published by the
// Studio. Broadcasts leave the daemon goroutine through a buffered channel and
// are fanned out to WebSocket clients by RunBroadcaster.
type StateBroadcast interface {
	broadcastMarker()
}

// Playback finish reasons.
const (
	finishComplete  = "complete"
	finishCancelled = "cancelled"
	finishError     = "error"
)

// BroadcastPlaybackStarted is published when a trajectory starts playing.
type BroadcastPlaybackStarted struct {
	Session   string
	Name      string
	Segments  int
	DurationS float64
	At        time.Time
}

func (BroadcastPlaybackStarted) broadcastMarker() {}

// BroadcastSegmentChanged is published when playback moves to a new segment.
type BroadcastSegmentChanged struct {
	Session  string
	Segment  int
	Segments int
	At       time.Time
}

func (BroadcastSegmentChanged) broadcastMarker() {}

// BroadcastJointCommand carries the setpoint applied on one tick. The slices
// are copies and may be retained.
type BroadcastJointCommand struct {
	Session    string
	Segment    int
	Positions  []float64
	Velocities []float64
	At         time.Time
}

func (BroadcastJointCommand) broadcastMarker() {}

// BroadcastPlaybackFinished is published when playback ends for any reason.
type BroadcastPlaybackFinished struct {
	Session string
	Reason  string
	Error   string
	At      time.Time
}

func (BroadcastPlaybackFinished) broadcastMarker() {}

// BroadcastViaPointsChanged is published when the capture cache changes.
// Points are in degrees.
type BroadcastViaPointsChanged struct {
	Points [][]float64
	At     time.Time
}

func (BroadcastViaPointsChanged) broadcastMarker() {}

// StateSnapshot is a point-in-time copy of the Studio state, safe to hand to
// other goroutines.
type StateSnapshot struct {
	State      string
	Session    string
	Trajectory string
	Segment    int
	Segments   int
	ElapsedS   float64
	JointNames []string
	ViaPoints  [][]float64
	At         time.Time
}
