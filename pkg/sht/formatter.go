// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sht

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] SHT_STATUS temp_ticks=%d hum_ticks=%d chk=0x%02X\n",
		timestamp, f.temperatureTicks, f.humidityTicks, f.checksum)
	return result + formatValues(f.Reading())
}

// FormatReading formats a converted reading into a human-readable string
func FormatReading(r Reading) string {
	timestamp := r.Timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] SHT_STATUS temp_ticks=%d hum_ticks=%d\n",
		timestamp, r.TemperatureTicks, r.HumidityTicks)
	return result + formatValues(r)
}

func formatValues(r Reading) string {
	return fmt.Sprintf("  Temperature: %.2f°C\n  Humidity: %.2f%%RH\n", r.Temperature, r.Humidity)
}

// FormatHex returns a space separated hex dump of raw bytes
func FormatHex(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
