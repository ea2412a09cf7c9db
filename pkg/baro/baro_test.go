// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baro

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// calibration coefficients from the MS5611 datasheet example, word 0 is
// factory data and word 7 carries the CRC nibble
var datasheetPROM = PROM{0x0042, 40127, 36924, 23317, 23282, 33464, 28312, 0x0009}

func promOps(addr uint16, p PROM) []i2ctest.IO {
	ops := []i2ctest.IO{{Addr: addr, W: []byte{cmdReset}}}
	for i, w := range p {
		ops = append(ops, i2ctest.IO{
			Addr: addr,
			W:    []byte{cmdPROMRead + byte(2*i)},
			R:    []byte{byte(w >> 8), byte(w)},
		})
	}
	return ops
}

// ============================================================
// Board Tests
// ============================================================

func TestNaze32(t *testing.T) {
	if Naze32.Sensor != SensorMS5611 {
		t.Errorf("expected MS5611, got %s", Naze32.Sensor)
	}
	if Naze32.Bus != BusI2C {
		t.Errorf("expected i2c, got %s", Naze32.Bus)
	}
	if Naze32.Addr != 0x77 {
		t.Errorf("expected 0x77, got 0x%02X", Naze32.Addr)
	}
	if got := Naze32.String(); got != "naze32: MS5611 on i2c @ 0x77" {
		t.Errorf("unexpected String(): %q", got)
	}
}

func TestLookup(t *testing.T) {
	b, err := Lookup("NAZE32")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if b != Naze32 {
		t.Errorf("expected Naze32, got %v", b)
	}

	if _, err := Lookup("pixhawk"); err == nil {
		t.Error("expected error for unknown board")
	}
}

// ============================================================
// PROM Tests
// ============================================================

func TestCRC4(t *testing.T) {
	if got := datasheetPROM.CRC4(); got != 0x9 {
		t.Errorf("expected CRC 0x9, got 0x%X", got)
	}

	// the CRC nibble itself does not feed the checksum
	p := datasheetPROM
	p[7] = 0x000F
	if got := p.CRC4(); got != 0x9 {
		t.Errorf("expected CRC 0x9 with different nibble, got 0x%X", got)
	}

	p = datasheetPROM
	p[3]++
	if got := p.CRC4(); got == 0x9 {
		t.Error("expected CRC to change with a coefficient")
	}
}

func TestNewI2C(t *testing.T) {
	bus := &i2ctest.Playback{Ops: promOps(Naze32.Addr, datasheetPROM)}

	dev, err := NewBoard(bus, Naze32)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	if dev.PROM() != datasheetPROM {
		t.Errorf("unexpected PROM %v", dev.PROM())
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewI2C_BadCRC(t *testing.T) {
	p := datasheetPROM
	p[7] = 0x0003
	bus := &i2ctest.Playback{Ops: promOps(Naze32.Addr, p)}

	_, err := NewI2C(bus, Naze32.Addr)

	var promErr *PROMError
	if !errors.As(err, &promErr) {
		t.Fatalf("expected PROMError, got %v", err)
	}
	if promErr.Expected != 0x9 || promErr.Received != 0x3 {
		t.Errorf("unexpected error fields %+v", promErr)
	}
}

func TestNewI2C_BusError(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	if _, err := NewI2C(bus, Naze32.Addr); err == nil {
		t.Error("expected error from empty bus")
	}
}

func TestNewBoard_Unsupported(t *testing.T) {
	board := Board{Name: "spi-board", Sensor: SensorMS5611, Bus: "spi", Addr: 0}
	if _, err := NewBoard(&i2ctest.Playback{}, board); err == nil {
		t.Error("expected error for spi board")
	}
}

// ============================================================
// Conversion Tests
// ============================================================

func TestCompensate_Datasheet(t *testing.T) {
	temp, pressure := compensate(datasheetPROM, 9085466, 8569150)
	if temp != 2007 {
		t.Errorf("expected 2007 (20.07°C), got %d", temp)
	}
	if pressure != 100009 {
		t.Errorf("expected 100009 Pa, got %d", pressure)
	}
}

func TestCompensate_Cold(t *testing.T) {
	// D2 low enough to land below 20°C applies the second order terms
	warm, _ := compensate(datasheetPROM, 9085466, 8569150)
	cold, _ := compensate(datasheetPROM, 9085466, 8000000)
	if cold >= 2000 {
		t.Fatalf("expected temperature below 20°C, got %d", cold)
	}
	if cold >= warm {
		t.Errorf("expected cold %d below warm %d", cold, warm)
	}
}

func TestSense(t *testing.T) {
	addr := Naze32.Addr
	ops := promOps(addr, datasheetPROM)
	ops = append(ops,
		i2ctest.IO{Addr: addr, W: []byte{cmdConvertD1}},
		i2ctest.IO{Addr: addr, W: []byte{cmdADCRead}, R: []byte{0x8A, 0xA2, 0x1A}},
		i2ctest.IO{Addr: addr, W: []byte{cmdConvertD2}},
		i2ctest.IO{Addr: addr, W: []byte{cmdADCRead}, R: []byte{0x82, 0xC1, 0x3E}},
	)
	bus := &i2ctest.Playback{Ops: ops}

	dev, err := NewI2C(bus, addr)
	if err != nil {
		t.Fatalf("NewI2C: %v", err)
	}

	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		t.Fatalf("Sense: %v", err)
	}
	if expected := 20070*physic.MilliKelvin + physic.ZeroCelsius; e.Temperature != expected {
		t.Errorf("temperature %s != %s", e.Temperature, expected)
	}
	if expected := 100009 * physic.Pascal; e.Pressure != expected {
		t.Errorf("pressure %s != %s", e.Pressure, expected)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}
