// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TemperatureSource provides the current sensor temperature in °C
type TemperatureSource interface {
	Temperature() (float32, error)
}

// TemperatureFunc adapts a plain function to TemperatureSource
type TemperatureFunc func() (float32, error)

// Temperature calls f()
func (f TemperatureFunc) Temperature() (float32, error) {
	return f()
}

// ThermalZone reads a kernel thermal zone reporting millidegrees Celsius,
// e.g. /sys/class/thermal/thermal_zone0/temp
type ThermalZone struct {
	Path string
}

// Temperature reads the zone
func (z ThermalZone) Temperature() (float32, error) {
	buf, err := os.ReadFile(z.Path)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(buf)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("heater: bad thermal zone value in %s: %w", z.Path, err)
	}
	return float32(milli) / 1000, nil
}
