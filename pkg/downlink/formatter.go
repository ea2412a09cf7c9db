// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package downlink

import (
	"fmt"
	"math"
	"sort"
)

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X) sender=%d len=%d\n",
		timestamp, FormatMessageType(p.Type()), p.Type(), p.sender, p.length)

	if err := p.ParseError(); err != nil {
		return result + fmt.Sprintf("  Parse error: %v\n", err)
	}
	return result + FormatPayload(p)
}

// FormatMessageType returns the human-readable name for a message type
func FormatMessageType(msgType uint8) string {
	switch msgType {
	case MsgSHTStatus:
		return "SHT_STATUS"
	case MsgTmpStatus:
		return "TMP_STATUS"
	case MsgHeading:
		return "HEADING"
	default:
		return fmt.Sprintf("UNKNOWN_0x%02X", msgType)
	}
}

// FormatPayload formats the message fields of a packet
func FormatPayload(p *Packet) string {
	switch p.Type() {
	case MsgSHTStatus:
		m, err := ParseSHTStatus(p)
		if err != nil {
			return fmt.Sprintf("  Invalid payload: %v\n", err)
		}
		return fmt.Sprintf("  Temperature: %.2f°C (ticks=%d)\n  Humidity: %.2f%%RH (ticks=%d)\n",
			m.Temperature, m.TemperatureTicks, m.Humidity, m.HumidityTicks)

	case MsgTmpStatus:
		m, err := ParseTmpStatus(p)
		if err != nil {
			return fmt.Sprintf("  Invalid payload: %v\n", err)
		}
		return fmt.Sprintf("  Heater duty: %d%%\n  IMU temperature: %.2f°C\n", m.DutyCycle, m.Temperature)

	case MsgHeading:
		m, err := ParseHeading(p)
		if err != nil {
			return fmt.Sprintf("  Invalid payload: %v\n", err)
		}
		return fmt.Sprintf("  Heading: %.4f rad (%.1f°)\n", m.Radians, float64(m.Radians)*180/math.Pi)

	default:
		return formatRawMap(p.PayloadMap())
	}
}

func formatRawMap(m map[int]interface{}) string {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	result := ""
	for _, k := range keys {
		result += fmt.Sprintf("  [%d]: %v\n", k, m[k])
	}
	return result
}
