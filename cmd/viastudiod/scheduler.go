package main

// StepFunc is a per-tick callback. dt is the physics step in seconds.
type StepFunc func(dt float64)

type namedStep struct {
	name string
	fn   StepFunc
}

// Scheduler runs named callbacks once per physics tick, in registration
// order. It is owned by the daemon goroutine and is not safe for concurrent
// use.
//
// Callbacks may add or remove callbacks (including themselves) while a step is
// running. Removals take effect immediately; callbacks added during a step
// first run on the next step.
type Scheduler struct {
	steps   []namedStep
	removed map[string]bool
	running bool
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{removed: make(map[string]bool)}
}

// Add registers fn under name, replacing any callback with the same name
// (which keeps its position).
func (s *Scheduler) Add(name string, fn StepFunc) {
	delete(s.removed, name)
	for i := range s.steps {
		if s.steps[i].name == name {
			s.steps[i].fn = fn
			return
		}
	}
	s.steps = append(s.steps, namedStep{name: name, fn: fn})
}

// Remove unregisters name. Unknown names are ignored.
func (s *Scheduler) Remove(name string) {
	for i := range s.steps {
		if s.steps[i].name != name {
			continue
		}
		if s.running {
			s.removed[name] = true
			return
		}
		s.steps = append(s.steps[:i], s.steps[i+1:]...)
		return
	}
}

// Has reports whether a callback is registered under name.
func (s *Scheduler) Has(name string) bool {
	if s.removed[name] {
		return false
	}
	for _, st := range s.steps {
		if st.name == name {
			return true
		}
	}
	return false
}

// Len returns the number of registered callbacks.
func (s *Scheduler) Len() int {
	n := 0
	for _, st := range s.steps {
		if !s.removed[st.name] {
			n++
		}
	}
	return n
}

// Step runs every registered callback once.
func (s *Scheduler) Step(dt float64) {
	s.running = true
	n := len(s.steps)
	for i := 0; i < n && i < len(s.steps); i++ {
		st := s.steps[i]
		if s.removed[st.name] {
			continue
		}
		st.fn(dt)
	}
	s.running = false

	if len(s.removed) == 0 {
		return
	}
	kept := s.steps[:0]
	for _, st := range s.steps {
		if !s.removed[st.name] {
			kept = append(kept, st)
		}
	}
	for i := len(kept); i < len(s.steps); i++ {
		s.steps[i] = namedStep{}
	}
	s.steps = kept
	clear(s.removed)
}
