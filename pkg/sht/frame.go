// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sht

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Frame represents one decoded SHT frame
type Frame struct {
	temperatureTicks uint16
	humidityTicks    uint16
	checksum         uint8
	timestamp        time.Time
}

// NewFrame creates a frame from raw tick values, computing the checksum
func NewFrame(temperatureTicks, humidityTicks uint16) *Frame {
	return &Frame{
		temperatureTicks: temperatureTicks,
		humidityTicks:    humidityTicks,
		checksum:         Checksum(dataBytes(temperatureTicks, humidityTicks)),
		timestamp:        time.Now(),
	}
}

// TemperatureTicks returns the raw 14 bit temperature reading
func (f *Frame) TemperatureTicks() uint16 {
	return f.temperatureTicks
}

// HumidityTicks returns the raw 12 bit humidity reading
func (f *Frame) HumidityTicks() uint16 {
	return f.humidityTicks
}

// Checksum returns the checksum byte carried by the frame
func (f *Frame) Checksum() uint8 {
	return f.checksum
}

// Timestamp returns the frame decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Reading converts the frame to physical units
func (f *Frame) Reading() Reading {
	tempC, rh := Convert(f.humidityTicks, f.temperatureTicks)
	return Reading{
		HumidityTicks:    f.humidityTicks,
		TemperatureTicks: f.temperatureTicks,
		Humidity:         rh,
		Temperature:      tempC,
		Timestamp:        f.timestamp,
	}
}

// Reading is a frame converted to physical units.
// Humidity is in %RH, Temperature in °C.
type Reading struct {
	HumidityTicks    uint16
	TemperatureTicks uint16
	Humidity         float32
	Temperature      float32
	Timestamp        time.Time
}

// Env returns the reading as a periph environment sample
func (r Reading) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(float64(r.Temperature)*float64(physic.Kelvin)),
		Humidity:    physic.RelativeHumidity(float64(r.Humidity) * float64(physic.PercentRH)),
	}
}
