// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sht

import "fmt"

// AnomalyType represents different types of reading anomalies
type AnomalyType int

const (
	AnomalyTemperatureTicks AnomalyType = iota
	AnomalyHumidityTicks
	AnomalyTemperatureRange
	AnomalyHumidityClamped
)

// Sensor operating range
const (
	minSensorTempC = -40.0
	maxSensorTempC = 123.8
)

// ValidationError represents a reading that decoded but looks wrong
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateReading checks a decoded reading against the sensor limits.
// Returns an empty slice for a plausible reading.
func ValidateReading(r Reading) []ValidationError {
	errors := []ValidationError{}

	if r.TemperatureTicks > MaxTemperatureTicks {
		errors = append(errors, ValidationError{
			Type:    AnomalyTemperatureTicks,
			Message: fmt.Sprintf("Temperature ticks=%d exceed %d bit range", r.TemperatureTicks, TemperatureBits),
			Details: map[string]interface{}{"ticks": r.TemperatureTicks, "max": MaxTemperatureTicks},
		})
	}

	if r.HumidityTicks > MaxHumidityTicks {
		errors = append(errors, ValidationError{
			Type:    AnomalyHumidityTicks,
			Message: fmt.Sprintf("Humidity ticks=%d exceed %d bit range", r.HumidityTicks, HumidityBits),
			Details: map[string]interface{}{"ticks": r.HumidityTicks, "max": MaxHumidityTicks},
		})
	}

	if r.Temperature < minSensorTempC || r.Temperature > maxSensorTempC {
		errors = append(errors, ValidationError{
			Type:    AnomalyTemperatureRange,
			Message: fmt.Sprintf("Temperature out of range (%.2f°C, valid: %.1f to %.1f°C)", r.Temperature, minSensorTempC, maxSensorTempC),
			Details: map[string]interface{}{"value": r.Temperature, "min": minSensorTempC, "max": maxSensorTempC},
		})
	}

	if r.Humidity <= float32(MinHumidity) || r.Humidity >= float32(MaxHumidity) {
		errors = append(errors, ValidationError{
			Type:    AnomalyHumidityClamped,
			Message: fmt.Sprintf("Humidity clamped to %.1f%%RH", r.Humidity),
			Details: map[string]interface{}{"value": r.Humidity},
		})
	}

	return errors
}
