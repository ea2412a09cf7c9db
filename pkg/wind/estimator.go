// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package wind holds the wind estimator. There is no estimation yet: while
// running it sweeps the navigation heading around the compass so the
// downstream wiring can be exercised.
package wind

import (
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultStep is the heading increment per tick, in degrees
	DefaultStep = 0.5

	fullTurn = 360.0
)

// HeadingSetter is the navigation entry point receiving the heading
type HeadingSetter interface {
	SetHeading(heading physic.Angle)
}

// HeadingFunc adapts a plain function to HeadingSetter
type HeadingFunc func(heading physic.Angle)

// SetHeading calls f(heading)
func (f HeadingFunc) SetHeading(heading physic.Angle) {
	f(heading)
}

// Estimator sweeps the heading while running
type Estimator struct {
	nav     HeadingSetter
	step    float32
	heading float32 // degrees
	running bool
}

// NewEstimator creates a stopped estimator feeding nav
func NewEstimator(nav HeadingSetter) *Estimator {
	return &Estimator{nav: nav, step: DefaultStep}
}

// SetStep overrides the per-tick increment in degrees
func (e *Estimator) SetStep(deg float32) {
	e.step = deg
}

// Init stops the estimator. The heading is kept.
func (e *Estimator) Init() {
	e.running = false
}

// Start resumes the heading sweep
func (e *Estimator) Start() {
	e.running = true
}

// Stop pauses the sweep, keeping the current heading
func (e *Estimator) Stop() {
	e.running = false
}

// Running reports whether the sweep is active
func (e *Estimator) Running() bool {
	return e.running
}

// Heading returns the current heading in degrees
func (e *Estimator) Heading() float32 {
	return e.heading
}

// Periodic advances the heading one step and pushes it to navigation.
// The heading wraps to 0 only once it exceeds 360, so 360 itself is sent.
func (e *Estimator) Periodic() {
	if !e.running {
		return
	}
	e.heading += e.step
	if e.heading > fullTurn {
		e.heading = 0
	}
	if e.nav != nil {
		e.nav.SetHeading(Angle(e.heading))
	}
}

// Angle converts degrees to a physic.Angle
func Angle(deg float32) physic.Angle {
	return physic.Angle(float64(deg) * float64(physic.Degree))
}
