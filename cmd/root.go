// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Thermoquad/meteostat/pkg/config"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configFile string
	inputFile  string
)

var rootCmd = &cobra.Command{
	Use:   "meteostat",
	Short: "Meteo sensor and INS heater tooling",
	Long: `Meteostat - tools for the autopilot meteo payload.

Decodes the SHT humidity/temperature UART stream, runs the INS heater PI loop,
drives the wind estimator and frames everything into the telemetry downlink.

Connection modes:
  Serial:    --port /dev/ttyS1 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]
  Capture:   --file capture.bin

For WebSocket authentication, the password is read from the METEOSTAT_PASSWORD
environment variable, or prompted interactively if not set.

Controller gains, scheduler rates and sysfs paths come from an optional YAML
file given with --config. Flags override the file.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "Read a captured byte stream instead of a port")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
}

// loadConfig reads --config, or the defaults, and applies connection flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	conf := config.Default()
	if configFile != "" {
		c, err := config.ParseConfigFile(configFile)
		if err != nil {
			return nil, err
		}
		conf = *c
	}

	flags := cmd.Flags()
	if flags.Changed("port") || conf.Serial.Port == "" {
		conf.Serial.Port = portName
	}
	if flags.Changed("baud") {
		conf.Serial.Baud = baudRate
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
