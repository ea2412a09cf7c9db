// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/Thermoquad/meteostat/pkg/baro"
)

var (
	baroBus      string
	baroBoard    string
	baroSamples  int
	baroInterval time.Duration
)

var baroCmd = &cobra.Command{
	Use:   "baro",
	Short: "Probe the flight board barometer",
	Long: `Open the barometer described by the board definition, check its calibration
PROM and print compensated temperature and pressure readings.

Known boards: naze32 (MS5611 on I²C @ 0x77).

Examples:
  meteostat baro
  meteostat baro --bus /dev/i2c-1 --samples 10`,
	RunE: runBaro,
}

func init() {
	rootCmd.AddCommand(baroCmd)
	baroCmd.Flags().StringVar(&baroBus, "bus", "", "I²C bus name (default: first available)")
	baroCmd.Flags().StringVar(&baroBoard, "board", baro.Naze32.Name, "Board definition")
	baroCmd.Flags().IntVar(&baroSamples, "samples", 1, "Number of readings to take")
	baroCmd.Flags().DurationVar(&baroInterval, "interval", time.Second, "Time between readings")
}

func runBaro(cmd *cobra.Command, args []string) error {
	board, err := baro.Lookup(baroBoard)
	if err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize host: %w", err)
	}
	bus, err := i2creg.Open(baroBus)
	if err != nil {
		return fmt.Errorf("failed to open I²C: %w", err)
	}
	defer bus.Close()

	fmt.Printf("Meteostat - Barometer Probe\n")
	fmt.Printf("Board: %s\n", board)
	fmt.Printf("Bus: %s\n\n", bus)

	dev, err := baro.NewBoard(bus, board)
	if err != nil {
		return err
	}
	defer dev.Halt()

	prom := dev.PROM()
	fmt.Printf("PROM (CRC-4 0x%X ok):\n", prom.CRC4())
	for i, w := range prom {
		fmt.Printf("  C%d = %5d (0x%04X)\n", i, w, w)
	}
	fmt.Println()

	for i := 0; i < baroSamples; i++ {
		if i > 0 {
			time.Sleep(baroInterval)
		}
		var e physic.Env
		if err := dev.Sense(&e); err != nil {
			return fmt.Errorf("reading %d: %w", i+1, err)
		}
		fmt.Printf("[%s] %8s %10s\n", time.Now().Format("15:04:05.000"), e.Temperature, e.Pressure)
	}
	return nil
}
