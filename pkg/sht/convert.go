// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sht

import "math"

// Convert turns raw ticks into temperature [°C] and temperature
// compensated relative humidity [%RH]. Humidity is clamped to the
// physically possible range.
func Convert(humidityTicks, temperatureTicks uint16) (tempC, rh float32) {
	h := float64(humidityTicks)
	t := float64(temperatureTicks)

	tC := t*tempScale + tempOffset
	rhLin := c3*h*h + c2*h + c1
	rhTrue := (tC-compRefC)*(t1+t2*h) + rhLin

	if rhTrue > MaxHumidity {
		rhTrue = MaxHumidity
	}
	if rhTrue < MinHumidity {
		rhTrue = MinHumidity
	}

	return float32(tC), float32(rhTrue)
}

// Ticks returns the raw ticks whose conversion is closest to the given
// temperature and humidity. Used to synthesize frames.
func Ticks(tempC, rh float32) (humidityTicks, temperatureTicks uint16) {
	t := math.Round((float64(tempC) - tempOffset) / tempScale)
	t = math.Max(0, math.Min(t, MaxTemperatureTicks))
	temperatureTicks = uint16(t)

	best := math.Inf(1)
	for h := 0; h <= MaxHumidityTicks; h++ {
		_, got := Convert(uint16(h), temperatureTicks)
		if d := math.Abs(float64(got - rh)); d < best {
			best = d
			humidityTicks = uint16(h)
		}
	}
	return humidityTicks, temperatureTicks
}
