// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/meteostat/pkg/sht"
)

// frame_test exit codes
const (
	exitOK              = 0
	exitTimeout         = 1
	exitConnectionError = 2
)

var frameTestTimeout int

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test the sensor link by waiting for a valid SHT frame",
	Long: `Wait for a valid SHT frame on the connection until timeout.

Noise and frames failing the checksum are skipped. The command succeeds on the
first frame with a matching checksum.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(exitConnectionError)
	}
	conn, connInfo, err := openConnection(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(exitConnectionError)
	}
	defer conn.Close()

	fmt.Printf("Meteostat - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid SHT frame...\n\n")

	frames := make(chan *sht.Frame, 1)
	errs := make(chan error, 1)

	go func() {
		decoder := sht.NewDecoder()
		decoder.SetTimeout(conf.SHT.Timeout)
		rejected := 0
		var found *sht.Frame

		err := readLoop(conn, func(data []byte) {
			for _, b := range data {
				if found != nil {
					return
				}
				frame, err := decoder.DecodeByte(b)
				if err != nil {
					rejected++
					continue
				}
				if frame != nil {
					if rejected > 0 {
						fmt.Printf("(skipped %d frames with bad checksum)\n", rejected)
					}
					found = frame
					frames <- frame
				}
			}
		})
		if found == nil {
			if err == nil {
				err = ErrConnectionClosed
			}
			errs <- err
		}
	}()

	select {
	case frame := <-frames:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Print(sht.FormatReading(frame.Reading()))
		fmt.Printf("  Checksum: 0x%02X\n", frame.Checksum())
		os.Exit(exitOK)

	case err := <-errs:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(exitConnectionError)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(exitTimeout)
	}
	return nil
}
