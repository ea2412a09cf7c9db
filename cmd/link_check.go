// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/meteostat/pkg/sht"
)

var (
	linkCheckDuration int
	linkCheckVerbose  bool
)

var linkCheckCmd = &cobra.Command{
	Use:   "link_check",
	Short: "Check raw link stability without decoding",
	Long: `Listen on the connection for a fixed time and report what arrives, without
running the frame decoder. Useful for debugging a flaky cable or bridge.

Every second a heartbeat line shows the bytes received so far. At the end the
byte rate and the number of SHT sync bytes seen are printed.

Exit codes:
  0 - Link stayed up for the whole duration
  1 - Link dropped during the check
  2 - Connection error`,
	RunE: runLinkCheck,
}

func init() {
	rootCmd.AddCommand(linkCheckCmd)
	linkCheckCmd.Flags().IntVar(&linkCheckDuration, "duration", 30, "Check duration in seconds")
	linkCheckCmd.Flags().BoolVarP(&linkCheckVerbose, "verbose", "v", false, "Print every chunk received")
}

type linkCounters struct {
	chunks    int
	bytes     int
	syncBytes int
}

func (c *linkCounters) add(data []byte) {
	c.chunks++
	c.bytes += len(data)
	c.syncBytes += bytes.Count(data, []byte{sht.SyncByte})
}

func (c *linkCounters) report(elapsed time.Duration) {
	fmt.Printf("\n--- Link Check Results ---\n")
	fmt.Printf("Duration: %.1f seconds\n", elapsed.Seconds())
	fmt.Printf("Chunks received: %d\n", c.chunks)
	fmt.Printf("Bytes received: %d", c.bytes)
	if elapsed > 0 {
		fmt.Printf(" (%.1f B/s)", float64(c.bytes)/elapsed.Seconds())
	}
	fmt.Println()
	fmt.Printf("Sync bytes seen: %d\n", c.syncBytes)
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Meteostat - Link Check\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", linkCheckDuration)

	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	start := time.Now()
	deadline := time.After(time.Duration(linkCheckDuration) * time.Second)
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	var counters linkCounters
	fmt.Printf("Listening for data...\n\n")

	for {
		select {
		case data := <-readChan:
			counters.add(data)
			if linkCheckVerbose {
				fmt.Printf("[%s] %d bytes: %s\n", time.Now().Format("15:04:05.000"), len(data), sht.FormatHex(data))
			}

		case err := <-errChan:
			fmt.Printf("\n[%s] Link dropped: %v\n", time.Now().Format("15:04:05.000"), err)
			counters.report(time.Since(start))
			fmt.Printf("Result: FAILED (link dropped)\n")
			os.Exit(exitTimeout)

		case <-heartbeat.C:
			remaining := time.Duration(linkCheckDuration)*time.Second - time.Since(start)
			fmt.Printf("[%s] %d bytes so far (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), counters.bytes, remaining.Seconds())

		case <-deadline:
			counters.report(time.Since(start))
			fmt.Printf("Result: PASSED (link stable)\n")
			return nil
		}
	}
}
