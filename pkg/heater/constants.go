// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package heater keeps the INS gyro/accel at a constant temperature by
// driving the board heating resistors through a PWM channel with a
// minimal PI loop (no dt term).
package heater

// Controller defaults. Duty values are nanoseconds of a 125000ns period.
const (
	DefaultKP      = 20000
	DefaultKI      = 6
	DefaultDutyMax = 125000
	DefaultTarget  = 50.0 // °C

	// TMP_STATUS is reported once per this many ticks
	DefaultStatusEvery = 50
)

// Sysfs PWM channel layout
const (
	DefaultPWMDir = "/sys/class/pwm/pwm_6"

	runAttr  = "run"
	dutyAttr = "duty_ns"
)
