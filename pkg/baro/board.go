// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package baro describes the barometer fitted to each supported flight
// board and drives it over I²C.
package baro

import (
	"fmt"
	"sort"
	"strings"
)

// Sensor identifies a barometer part
type Sensor string

const (
	SensorMS5611 Sensor = "MS5611"
)

// Bus identifies how the barometer is attached
type Bus string

const (
	BusI2C Bus = "i2c"
)

// Board describes the barometer wiring of one flight board
type Board struct {
	Name   string
	Sensor Sensor
	Bus    Bus
	Addr   uint16
}

func (b Board) String() string {
	return fmt.Sprintf("%s: %s on %s @ 0x%02X", b.Name, b.Sensor, b.Bus, b.Addr)
}

// Naze32 carries an MS5611 on I²C with CSB low
var Naze32 = Board{
	Name:   "naze32",
	Sensor: SensorMS5611,
	Bus:    BusI2C,
	Addr:   MS5611AddrCSBLow,
}

var boards = map[string]Board{
	Naze32.Name: Naze32,
}

// Lookup returns the board with the given name, case insensitive
func Lookup(name string) (Board, error) {
	b, ok := boards[strings.ToLower(name)]
	if !ok {
		return Board{}, fmt.Errorf("unknown board %q (known: %s)", name, strings.Join(Boards(), ", "))
	}
	return b, nil
}

// Boards lists the known board names
func Boards() []string {
	names := make([]string, 0, len(boards))
	for name := range boards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
