// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package downlink

import (
	"fmt"
	"math"
)

// SHTStatus is one humidity sensor reading
type SHTStatus struct {
	HumidityTicks    uint16
	TemperatureTicks uint16
	Humidity         float32 // %RH
	Temperature      float32 // °C
}

// Payload returns the CBOR field map
func (m SHTStatus) Payload() map[int]interface{} {
	return map[int]interface{}{
		FieldHumidityTicks:    m.HumidityTicks,
		FieldTemperatureTicks: m.TemperatureTicks,
		FieldHumidity:         m.Humidity,
		FieldTemperature:      m.Temperature,
	}
}

// TmpStatus reports the INS heater state
type TmpStatus struct {
	DutyCycle   uint16  // percent
	Temperature float32 // °C
}

// Payload returns the CBOR field map
func (m TmpStatus) Payload() map[int]interface{} {
	return map[int]interface{}{
		FieldDutyCycle: m.DutyCycle,
		FieldTmpTemp:   m.Temperature,
	}
}

// Heading is the navigation heading pushed by the wind estimator
type Heading struct {
	Radians float32
}

// Payload returns the CBOR field map
func (m Heading) Payload() map[int]interface{} {
	return map[int]interface{}{
		FieldHeading: m.Radians,
	}
}

func requireType(p *Packet, want uint8) error {
	if err := p.ParseError(); err != nil {
		return err
	}
	if p.Type() != want {
		return fmt.Errorf("expected %s, got %s", FormatMessageType(want), FormatMessageType(p.Type()))
	}
	return nil
}

func getUint16(m map[int]interface{}, key int, name string) (uint16, error) {
	v, ok := GetMapUint(m, key)
	if !ok {
		return 0, fmt.Errorf("missing field %s", name)
	}
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("field %s out of range: %d", name, v)
	}
	return uint16(v), nil
}

func getFloat32(m map[int]interface{}, key int, name string) (float32, error) {
	v, ok := GetMapFloat(m, key)
	if !ok {
		return 0, fmt.Errorf("missing field %s", name)
	}
	return float32(v), nil
}

// ParseSHTStatus extracts an SHT_STATUS message
func ParseSHTStatus(p *Packet) (SHTStatus, error) {
	var m SHTStatus
	if err := requireType(p, MsgSHTStatus); err != nil {
		return m, err
	}
	payload := p.PayloadMap()

	var err error
	if m.HumidityTicks, err = getUint16(payload, FieldHumidityTicks, "humidity_ticks"); err != nil {
		return m, err
	}
	if m.TemperatureTicks, err = getUint16(payload, FieldTemperatureTicks, "temperature_ticks"); err != nil {
		return m, err
	}
	if m.Humidity, err = getFloat32(payload, FieldHumidity, "humidity"); err != nil {
		return m, err
	}
	if m.Temperature, err = getFloat32(payload, FieldTemperature, "temperature"); err != nil {
		return m, err
	}
	return m, nil
}

// ParseTmpStatus extracts a TMP_STATUS message
func ParseTmpStatus(p *Packet) (TmpStatus, error) {
	var m TmpStatus
	if err := requireType(p, MsgTmpStatus); err != nil {
		return m, err
	}
	payload := p.PayloadMap()

	var err error
	if m.DutyCycle, err = getUint16(payload, FieldDutyCycle, "duty_cycle"); err != nil {
		return m, err
	}
	if m.Temperature, err = getFloat32(payload, FieldTmpTemp, "temperature"); err != nil {
		return m, err
	}
	return m, nil
}

// ParseHeading extracts a HEADING message
func ParseHeading(p *Packet) (Heading, error) {
	var m Heading
	if err := requireType(p, MsgHeading); err != nil {
		return m, err
	}
	v, err := getFloat32(p.PayloadMap(), FieldHeading, "heading")
	if err != nil {
		return m, err
	}
	m.Radians = v
	return m, nil
}
