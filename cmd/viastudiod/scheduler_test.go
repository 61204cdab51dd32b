package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_RunsInRegistrationOrder(t *testing.T) {
	s := NewScheduler()
	var calls []string
	s.Add("a", func(float64) { calls = append(calls, "a") })
	s.Add("b", func(float64) { calls = append(calls, "b") })
	s.Add("c", func(float64) { calls = append(calls, "c") })

	s.Step(0.01)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
	assert.Equal(t, 3, s.Len())
}

func TestScheduler_AddReplacesInPlace(t *testing.T) {
	s := NewScheduler()
	var calls []string
	s.Add("a", func(float64) { calls = append(calls, "a1") })
	s.Add("b", func(float64) { calls = append(calls, "b") })
	s.Add("a", func(float64) { calls = append(calls, "a2") })

	s.Step(0.01)
	assert.Equal(t, []string{"a2", "b"}, calls)
	assert.Equal(t, 2, s.Len())
}

func TestScheduler_Remove(t *testing.T) {
	s := NewScheduler()
	s.Add("a", func(float64) {})
	s.Remove("missing")
	assert.True(t, s.Has("a"))

	s.Remove("a")
	assert.False(t, s.Has("a"))
	assert.Equal(t, 0, s.Len())
	s.Step(0.01)
}

func TestScheduler_SelfRemovalDuringStep(t *testing.T) {
	s := NewScheduler()
	var calls []string
	s.Add("once", func(float64) {
		calls = append(calls, "once")
		s.Remove("once")
	})
	s.Add("always", func(float64) { calls = append(calls, "always") })

	s.Step(0.01)
	assert.False(t, s.Has("once"))
	assert.Equal(t, 1, s.Len())

	s.Step(0.01)
	assert.Equal(t, []string{"once", "always", "always"}, calls)
}

func TestScheduler_RemoveLaterCallbackDuringStep(t *testing.T) {
	s := NewScheduler()
	var calls []string
	s.Add("first", func(float64) {
		calls = append(calls, "first")
		s.Remove("second")
	})
	s.Add("second", func(float64) { calls = append(calls, "second") })

	s.Step(0.01)
	assert.Equal(t, []string{"first"}, calls)
}

func TestScheduler_AddDuringStepRunsNextStep(t *testing.T) {
	s := NewScheduler()
	var calls []string
	s.Add("spawner", func(float64) {
		if !s.Has("child") {
			s.Add("child", func(float64) { calls = append(calls, "child") })
		}
		calls = append(calls, "spawner")
	})

	s.Step(0.01)
	assert.Equal(t, []string{"spawner"}, calls)

	s.Step(0.01)
	assert.Equal(t, []string{"spawner", "spawner", "child"}, calls)
}

func TestScheduler_RemoveThenReAddDuringStep(t *testing.T) {
	s := NewScheduler()
	n := 0
	s.Add("p", func(float64) {
		n++
		s.Remove("p")
		s.Add("p", func(float64) { n += 10 })
	})

	s.Step(0.01)
	assert.True(t, s.Has("p"))
	s.Step(0.01)
	assert.Equal(t, 11, n)
}
