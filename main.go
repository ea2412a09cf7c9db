// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Meteostat - meteo payload tooling
//
// Decodes the SHT humidity/temperature UART stream, runs the INS heater PI
// loop and the wind estimator, and frames their telemetry for the downlink.

package main

import (
	"os"

	"github.com/Thermoquad/meteostat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
