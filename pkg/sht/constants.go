// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sht decodes the SHTxx humidity/temperature UART protocol.
//
// The sensor board streams fixed 6-byte frames:
//
//	0xFF | temp lo | temp hi | hum lo | hum hi | checksum
//
// The checksum is the low byte of the sum of the four data bytes. There is
// no escaping, so 0xFF is only treated as sync while the decoder is idle.
package sht

// Framing
const (
	SyncByte  = 0xFF
	FrameSize = 6
)

// Raw sensor resolution
const (
	TemperatureBits = 14
	HumidityBits    = 12

	MaxTemperatureTicks = 1<<TemperatureBits - 1
	MaxHumidityTicks    = 1<<HumidityBits - 1
)

// Conversion coefficients for 12 bit humidity and 14 bit temperature.
const (
	tempScale  = 0.01
	tempOffset = -39.66

	c1 = -4.0
	c2 = 0.0405
	c3 = -0.0000028
	t1 = 0.01
	t2 = 0.00008

	// RH reference temperature for compensation
	compRefC = 25.0

	MinHumidity = 0.1
	MaxHumidity = 100.0
)

// State is the decoder framing state
type State int

// Decoder states
const (
	StateIdle State = iota
	StateAccumulating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAccumulating:
		return "ACCUMULATING"
	default:
		return "UNKNOWN"
	}
}
