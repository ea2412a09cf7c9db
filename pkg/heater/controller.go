// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"time"
)

// ErrShortWrite is returned when an init write does not write exactly one byte
var ErrShortWrite = errors.New("heater: short write")

// Config holds the controller gains and limits
type Config struct {
	KP      float32
	KI      float32
	DutyMax uint32  // ns
	Target  float32 // °C

	// StatusEvery reports TMP_STATUS once per this many ticks, 0 disables
	StatusEvery int
}

// DefaultConfig returns the firmware constants
func DefaultConfig() Config {
	return Config{
		KP:          DefaultKP,
		KI:          DefaultKI,
		DutyMax:     DefaultDutyMax,
		Target:      DefaultTarget,
		StatusEvery: DefaultStatusEvery,
	}
}

// StatusSink receives TMP_STATUS reports
type StatusSink interface {
	SendTmpStatus(dutyPercent uint16, temperature float32)
}

// Controller is a PI loop holding the IMU at Config.Target. It is driven
// from a single goroutine. Once Init fails the controller stays disabled
// for the life of the process.
type Controller struct {
	cfg    Config
	pwm    PWM
	status StatusSink
	logger *LogLimiter

	run  io.WriteCloser
	duty io.WriteCloser

	initialized   bool
	enabled       bool
	sumError      float32
	output        uint32
	statusCounter int
}

// NewController creates a disabled controller for the given PWM channel
func NewController(cfg Config, pwm PWM) *Controller {
	return &Controller{
		cfg:    cfg,
		pwm:    pwm,
		logger: NewLogLimiter(time.Minute),
	}
}

// SetStatusSink sets where TMP_STATUS reports go. nil disables reporting.
func (c *Controller) SetStatusSink(s StatusSink) {
	c.status = s
}

// Init opens the PWM channel and switches it on with a zero duty cycle.
// Only the first call does anything. Returns whether the controller is enabled.
func (c *Controller) Init() bool {
	if c.initialized {
		return c.enabled
	}
	c.initialized = true

	if err := c.open(); err != nil {
		log.Printf("heater: init failed, heater disabled: %v", err)
		return false
	}
	c.enabled = true
	return true
}

func (c *Controller) open() error {
	run, err := c.pwm.OpenRun()
	if err != nil {
		return fmt.Errorf("could not open run: %w", err)
	}
	duty, err := c.pwm.OpenDuty()
	if err != nil {
		run.Close()
		return fmt.Errorf("could not open duty: %w", err)
	}

	steps := []struct {
		w     io.Writer
		value string
		what  string
	}{
		{duty, "0", "set duty cycle"},
		{run, "0", "disable pwm"},
		{run, "1", "enable pwm"},
	}
	for _, s := range steps {
		if err := writeByte(s.w, s.value); err != nil {
			run.Close()
			duty.Close()
			return fmt.Errorf("could not %s: %w", s.what, err)
		}
	}

	c.run = run
	c.duty = duty
	return nil
}

func writeByte(w io.Writer, s string) error {
	n, err := io.WriteString(w, s)
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrShortWrite
	}
	return nil
}

// Periodic runs one controller step with the current sensor temperature.
// A disabled controller writes nothing but still reports status. A NaN
// reading skips the step and leaves the duty cycle unchanged.
func (c *Controller) Periodic(current float32) {
	nan := math.IsNaN(float64(current))
	if nan {
		c.logger.Print("heater: ignoring NaN temperature")
	}

	if c.enabled && !nan {
		c.output = c.step(current)
		if _, err := fmt.Fprintf(c.duty, "%d", c.output); err != nil {
			c.logger.Printf("heater: could not set duty cycle: %v", err)
		}
	}

	if c.status != nil && c.cfg.StatusEvery > 0 {
		c.statusCounter++
		if c.statusCounter >= c.cfg.StatusEvery {
			c.statusCounter = 0
			c.status.SendTmpStatus(DutyPercent(c.output, c.cfg.DutyMax), current)
		}
	}
}

// step updates the integral and returns the clamped command
func (c *Controller) step(current float32) uint32 {
	dutyMax := float32(c.cfg.DutyMax)
	err := c.cfg.Target - current

	// integral freezes once it alone could saturate the output
	if abs32(c.sumError)*c.cfg.KI < dutyMax {
		c.sumError += err
	}

	out := c.cfg.KP*err + c.cfg.KI*c.sumError
	if out > dutyMax {
		out = dutyMax
	} else if out < 0 {
		out = 0
	}
	return uint32(out)
}

// Enabled reports whether Init succeeded
func (c *Controller) Enabled() bool {
	return c.enabled
}

// SumError returns the accumulated integral error
func (c *Controller) SumError() float32 {
	return c.sumError
}

// Output returns the last duty written, in ns
func (c *Controller) Output() uint32 {
	return c.output
}

// Close zeroes the duty cycle, stops the PWM and releases the handles. It
// must be the last call on the controller.
func (c *Controller) Close() error {
	if !c.enabled {
		return nil
	}
	var errs []error
	if _, err := io.WriteString(c.duty, "0"); err != nil {
		errs = append(errs, err)
	}
	if _, err := io.WriteString(c.run, "0"); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.duty.Close(), c.run.Close())
	c.enabled = false
	return errors.Join(errs...)
}

// DutyPercent converts a duty in ns to a percentage of dutyMax
func DutyPercent(output, dutyMax uint32) uint16 {
	step := dutyMax / 100
	if step == 0 {
		return 0
	}
	return uint16(output / step)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
