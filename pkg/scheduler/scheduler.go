// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package scheduler runs the autopilot main loop: event hooks that drain
// input as soon as it arrives, and periodic tasks at integer divisors of
// the main loop frequency. Everything runs on the goroutine calling Run.
package scheduler

import (
	"context"
	"fmt"
	"time"
)

// DefaultMainFreq is the main loop frequency in Hz
const DefaultMainFreq = 500

type task struct {
	name      string
	prescaler *Prescaler
	fn        func()
}

// Scheduler dispatches event hooks and periodic tasks
type Scheduler struct {
	mainFreq int
	tasks    []*task
	events   []func()
	wake     chan struct{}
	ticks    uint64
}

// New creates a scheduler ticking at mainFreq Hz
func New(mainFreq int) (*Scheduler, error) {
	if mainFreq <= 0 {
		return nil, fmt.Errorf("scheduler: invalid main frequency %d", mainFreq)
	}
	return &Scheduler{
		mainFreq: mainFreq,
		wake:     make(chan struct{}, 1),
	}, nil
}

// MainFreq returns the main loop frequency in Hz
func (s *Scheduler) MainFreq() int {
	return s.mainFreq
}

// AddPeriodic registers fn to run at freq Hz, which must divide the main
// loop frequency
func (s *Scheduler) AddPeriodic(name string, freq int, fn func()) error {
	if freq <= 0 || freq > s.mainFreq || s.mainFreq%freq != 0 {
		return fmt.Errorf("scheduler: %s: %d Hz does not divide main frequency %d Hz", name, freq, s.mainFreq)
	}
	s.tasks = append(s.tasks, &task{
		name:      name,
		prescaler: NewPrescaler(s.mainFreq / freq),
		fn:        fn,
	})
	return nil
}

// AddEvent registers fn to run on every loop iteration and wake-up
func (s *Scheduler) AddEvent(fn func()) {
	s.events = append(s.events, fn)
}

// Wake runs the event hooks without waiting for the next tick. Safe to
// call from any goroutine.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Ticks returns the number of main loop ticks run
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}

// Tasks lists registered periodic tasks as "name@freqHz"
func (s *Scheduler) Tasks() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = fmt.Sprintf("%s@%dHz", t.name, s.mainFreq/t.prescaler.every)
	}
	return names
}

// Step runs one main loop tick: event hooks, then every periodic task whose
// prescaler fires, in registration order
func (s *Scheduler) Step() {
	s.runEvents()
	for _, t := range s.tasks {
		if t.prescaler.Tick() {
			t.fn()
		}
	}
	s.ticks++
}

func (s *Scheduler) runEvents() {
	for _, fn := range s.events {
		fn()
	}
}

// Run ticks until ctx is done. Tasks are never interrupted; cancellation is
// observed between ticks. Returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.mainFreq))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Step()
		case <-s.wake:
			s.runEvents()
		}
	}
}

// Prescaler fires once every N calls to Tick, starting on the Nth
type Prescaler struct {
	every int
	count int
}

// NewPrescaler creates a prescaler firing every n ticks. n < 1 is treated as 1.
func NewPrescaler(n int) *Prescaler {
	if n < 1 {
		n = 1
	}
	return &Prescaler{every: n}
}

// Tick advances the counter and reports whether this call fires
func (p *Prescaler) Tick() bool {
	p.count++
	if p.count >= p.every {
		p.count = 0
		return true
	}
	return false
}

// RunOnceEvery calls fn on every nth call through p
func (p *Prescaler) RunOnceEvery(fn func()) {
	if p.Tick() {
		fn()
	}
}
