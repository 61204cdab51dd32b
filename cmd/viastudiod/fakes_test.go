package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"viastudio/playback"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeActuator snaps to every applied command.
type fakeActuator struct {
	pos     []float64
	applied [][]float64

	readErr  error
	applyErr error
	closed   bool
}

func newFakeActuator(dim int) *fakeActuator {
	return &fakeActuator{pos: make([]float64, dim)}
}

func (a *fakeActuator) CurrentPositions() ([]float64, error) {
	if a.readErr != nil {
		return nil, a.readErr
	}
	return append([]float64(nil), a.pos...), nil
}

func (a *fakeActuator) Apply(positions, velocities []float64) error {
	if a.applyErr != nil {
		return a.applyErr
	}
	copy(a.pos, positions)
	a.applied = append(a.applied, append([]float64(nil), positions...))
	return nil
}

func (a *fakeActuator) Close() error {
	a.closed = true
	return nil
}

type storedTrajectory struct {
	jointNames []string
	rows       []playback.Row
}

// memStore is an in-memory TrajectoryStore.
type memStore struct {
	items   map[string]storedTrajectory
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]storedTrajectory)}
}

func (s *memStore) Load(name string) ([]playback.Row, error) {
	it, ok := s.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTrajectoryNotFound, name)
	}
	return it.rows, nil
}

func (s *memStore) Save(name string, jointNames []string, rows []playback.Row) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.items[name] = storedTrajectory{
		jointNames: append([]string(nil), jointNames...),
		rows:       append([]playback.Row(nil), rows...),
	}
	return nil
}

func (s *memStore) List() ([]string, error) {
	names := make([]string, 0, len(s.items))
	for n := range s.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memStore) Close() error { return nil }

var errFakeIO = errors.New("fake i/o failure")

type testStudio struct {
	studio     *Studio
	sched      *Scheduler
	act        *fakeActuator
	store      *memStore
	broadcasts chan StateBroadcast
}

// newTestStudio builds a Studio over fakes with deterministic session ids
// ("s1", "s2", ...) and a fixed clock.
func newTestStudio(t *testing.T, jointNames ...string) *testStudio {
	t.Helper()
	if len(jointNames) == 0 {
		jointNames = []string{"J1", "J2"}
	}
	ts := &testStudio{
		sched:      NewScheduler(),
		act:        newFakeActuator(len(jointNames)),
		store:      newMemStore(),
		broadcasts: make(chan StateBroadcast, 1024),
	}
	ts.studio = NewStudio(StudioConfig{JointNames: jointNames, CaptureDurationS: 2.5},
		ts.sched, ts.act, ts.store, ts.broadcasts, discardLogger())

	n := 0
	ts.studio.newSession = func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts.studio.now = func() time.Time { return at }
	return ts
}

// drain returns every broadcast queued so far.
func (ts *testStudio) drain() []StateBroadcast {
	var out []StateBroadcast
	for {
		select {
		case b := <-ts.broadcasts:
			out = append(out, b)
		default:
			return out
		}
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
