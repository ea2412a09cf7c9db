// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/meteostat/pkg/sht"
)

var (
	rawLogHex bool
	rawLogEnv bool
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded SHT frames in human-readable format",
	Long: `Continuously decode and display SHT humidity/temperature frames as they arrive.

Each frame is shown with its timestamp, raw ticks, checksum and the converted
temperature and relative humidity. Frames failing the checksum are reported
and dropped.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogHex, "hex", false, "Also dump the raw bytes of every frame")
	rawLogCmd.Flags().BoolVar(&rawLogEnv, "env", false, "Also print the reading as a periph environment sample")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	conn, connInfo, err := openConnection(conf)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Meteostat - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := sht.NewDecoder()
	decoder.SetTimeout(conf.SHT.Timeout)

	err = readLoop(conn, func(data []byte) {
		for _, b := range data {
			frame, err := decoder.DecodeByte(b)
			if err != nil {
				var checksumErr *sht.ChecksumError
				if errors.As(err, &checksumErr) {
					fmt.Printf("[ERROR] %v (frame dropped)\n", err)
				} else {
					fmt.Printf("[ERROR] %v\n", err)
				}
				continue
			}
			if frame == nil {
				continue
			}
			fmt.Print(sht.FormatFrame(frame))
			if rawLogEnv {
				env := frame.Reading().Env()
				fmt.Printf("  Env: %s %s\n", env.Temperature, env.Humidity)
			}
			if rawLogHex {
				fmt.Printf("  Raw: %s\n", sht.FormatHex(sht.EncodeFrameWithChecksum(
					frame.TemperatureTicks(), frame.HumidityTicks(), frame.Checksum())))
			}
		}
	})
	if err == nil {
		log.Printf("Connection closed")
	}
	return err
}
