// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package baro

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// MS5611 I²C addresses, selected by the CSB pin
const (
	MS5611AddrCSBLow  uint16 = 0x77
	MS5611AddrCSBHigh uint16 = 0x76
)

const (
	cmdReset     byte = 0x1E
	cmdConvertD1 byte = 0x48 // pressure, OSR 4096
	cmdConvertD2 byte = 0x58 // temperature, OSR 4096
	cmdADCRead   byte = 0x00
	cmdPROMRead  byte = 0xA0

	promWords = 8

	// datasheet max is 2.8ms for reset and 9.04ms for OSR 4096
	resetDelay      = 3 * time.Millisecond
	conversionDelay = 10 * time.Millisecond
)

// PROMError is returned when the calibration PROM fails its CRC-4
type PROMError struct {
	Expected uint8
	Received uint8
}

func (e *PROMError) Error() string {
	return fmt.Sprintf("ms5611: PROM CRC mismatch: expected 0x%X, got 0x%X", e.Expected, e.Received)
}

// PROM is the factory calibration. C[1]..C[6] are the datasheet coefficients.
type PROM [promWords]uint16

// CRC4 computes the PROM checksum over all words with the CRC nibble cleared
func (p PROM) CRC4() uint8 {
	p[7] &= 0xFF00
	var rem uint16
	for cnt := 0; cnt < 2*promWords; cnt++ {
		if cnt%2 == 1 {
			rem ^= p[cnt>>1] & 0x00FF
		} else {
			rem ^= p[cnt>>1] >> 8
		}
		for bit := 0; bit < 8; bit++ {
			if rem&0x8000 != 0 {
				rem = rem<<1 ^ 0x3000
			} else {
				rem <<= 1
			}
		}
	}
	return uint8(rem>>12) & 0x0F
}

// Dev is an MS5611 barometer
type Dev struct {
	d    *i2c.Dev
	mu   sync.Mutex
	prom PROM
}

// NewI2C resets the sensor at addr and loads its calibration PROM
func NewI2C(b i2c.Bus, addr uint16) (*Dev, error) {
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}}
	if err := d.Reset(); err != nil {
		return nil, fmt.Errorf("ms5611: reset: %w", err)
	}
	if _, err := d.ReadPROM(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewBoard opens the barometer described by board on bus
func NewBoard(b i2c.Bus, board Board) (*Dev, error) {
	if board.Sensor != SensorMS5611 || board.Bus != BusI2C {
		return nil, fmt.Errorf("baro: unsupported board %s", board)
	}
	return NewI2C(b, board.Addr)
}

func (d *Dev) String() string {
	return fmt.Sprintf("MS5611{%s}", d.d)
}

// Reset reloads the PROM into the sensor's internal registers
func (d *Dev) Reset() error {
	if err := d.d.Tx([]byte{cmdReset}, nil); err != nil {
		return err
	}
	time.Sleep(resetDelay)
	return nil
}

// ReadPROM reads and CRC checks the calibration PROM
func (d *Dev) ReadPROM() (PROM, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var p PROM
	buf := make([]byte, 2)
	for i := range p {
		if err := d.d.Tx([]byte{cmdPROMRead + byte(2*i)}, buf); err != nil {
			return PROM{}, fmt.Errorf("ms5611: PROM word %d: %w", i, err)
		}
		p[i] = binary.BigEndian.Uint16(buf)
	}

	if crc := p.CRC4(); crc != uint8(p[7]&0x0F) {
		return PROM{}, &PROMError{Expected: crc, Received: uint8(p[7] & 0x0F)}
	}
	d.prom = p
	return p, nil
}

// PROM returns the calibration loaded at construction
func (d *Dev) PROM() PROM {
	return d.prom
}

// Sense implements physic.SenseEnv. Humidity is always 0.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d1, err := d.convert(cmdConvertD1)
	if err != nil {
		return err
	}
	d2, err := d.convert(cmdConvertD2)
	if err != nil {
		return err
	}

	temp, pressure := compensate(d.prom, d1, d2)
	e.Temperature = physic.Temperature(temp)*10*physic.MilliKelvin + physic.ZeroCelsius
	e.Pressure = physic.Pressure(pressure) * physic.Pascal
	e.Humidity = 0
	return nil
}

// SenseContinuous is not supported
func (d *Dev) SenseContinuous(time.Duration) (<-chan physic.Env, error) {
	return nil, fmt.Errorf("ms5611: continuous sensing not supported")
}

// Precision implements physic.SenseEnv
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Pressure = physic.Pascal
}

// Halt is a no-op, conversions are one-shot
func (d *Dev) Halt() error {
	return nil
}

func (d *Dev) convert(cmd byte) (uint32, error) {
	if err := d.d.Tx([]byte{cmd}, nil); err != nil {
		return 0, err
	}
	time.Sleep(conversionDelay)
	buf := make([]byte, 3)
	if err := d.d.Tx([]byte{cmdADCRead}, buf); err != nil {
		return 0, err
	}
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]), nil
}

// compensate returns temperature in 0.01°C and pressure in Pa from the
// raw ADC values, with second order correction below 20°C
func compensate(c PROM, d1, d2 uint32) (temp, pressure int64) {
	dT := int64(d2) - int64(c[5])<<8
	temp = 2000 + dT*int64(c[6])>>23
	off := int64(c[2])<<16 + int64(c[4])*dT>>7
	sens := int64(c[1])<<15 + int64(c[3])*dT>>8

	if temp < 2000 {
		t2 := dT * dT >> 31
		low := (temp - 2000) * (temp - 2000)
		off2 := 5 * low >> 1
		sens2 := 5 * low >> 2
		if temp < -1500 {
			vlow := (temp + 1500) * (temp + 1500)
			off2 += 7 * vlow
			sens2 += 11 * vlow >> 1
		}
		temp -= t2
		off -= off2
		sens -= sens2
	}

	pressure = (int64(d1)*sens>>21 - off) >> 15
	return temp, pressure
}

var _ physic.SenseEnv = &Dev{}
