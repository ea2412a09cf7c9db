// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package downlink

import (
	"fmt"
	"math"
)

// AnomalyType represents different types of packet anomalies
type AnomalyType int

const (
	AnomalyUnknownType AnomalyType = iota
	AnomalyMalformed
	AnomalyHumidityRange
	AnomalyDutyRange
	AnomalyHeadingRange
)

// ValidationError represents a packet that decoded but looks wrong
type ValidationError struct {
	Type    AnomalyType
	Message string
}

func (v *ValidationError) Error() string {
	return v.Message
}

// ValidatePacket checks a decoded packet's message against plausible ranges.
// Returns an empty slice for a plausible packet.
func ValidatePacket(p *Packet) []ValidationError {
	errors := []ValidationError{}

	switch p.Type() {
	case MsgSHTStatus:
		m, err := ParseSHTStatus(p)
		if err != nil {
			return append(errors, malformed(err))
		}
		if m.Humidity < 0 || m.Humidity > 100 {
			errors = append(errors, ValidationError{
				Type:    AnomalyHumidityRange,
				Message: fmt.Sprintf("Humidity out of range (%.2f%%RH)", m.Humidity),
			})
		}

	case MsgTmpStatus:
		m, err := ParseTmpStatus(p)
		if err != nil {
			return append(errors, malformed(err))
		}
		if m.DutyCycle > 100 {
			errors = append(errors, ValidationError{
				Type:    AnomalyDutyRange,
				Message: fmt.Sprintf("Duty cycle out of range (%d%%)", m.DutyCycle),
			})
		}

	case MsgHeading:
		m, err := ParseHeading(p)
		if err != nil {
			return append(errors, malformed(err))
		}
		// the estimator sends exactly 2π before wrapping
		if m.Radians < 0 || float64(m.Radians) > 2*math.Pi+1e-4 {
			errors = append(errors, ValidationError{
				Type:    AnomalyHeadingRange,
				Message: fmt.Sprintf("Heading out of range (%.4f rad)", m.Radians),
			})
		}

	default:
		if err := p.ParseError(); err != nil {
			return append(errors, malformed(err))
		}
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownType,
			Message: fmt.Sprintf("Unknown message type 0x%02X", p.Type()),
		})
	}

	return errors
}

func malformed(err error) ValidationError {
	return ValidationError{Type: AnomalyMalformed, Message: fmt.Sprintf("Malformed payload: %v", err)}
}
