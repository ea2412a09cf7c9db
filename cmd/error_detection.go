// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/meteostat/pkg/sht"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze corrupt frames and implausible readings",
	Long: `Track frame errors and anomalous readings with statistics.

This command validates each frame and detects:
  - Checksum failures
  - Ticks outside the 14 bit temperature / 12 bit humidity range
  - Temperatures outside the sensor operating range
  - Humidity clamped at the physical limits
  - Statistics and trends (frame rate, error rate)

By default, only errors are displayed. Use --show-all to display valid frames too.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

// frameEvent is one decoder outcome: a frame or an error
type frameEvent struct {
	frame            *sht.Frame
	decodeErr        error
	validationErrors []sht.ValidationError
}

// syncTracker ignores decode errors until the first valid frame
type syncTracker struct {
	synchronized bool
	skipped      int
}

// observe classifies a decoder result. Returns false for results to ignore.
func (s *syncTracker) observe(frame *sht.Frame, err error) (ev frameEvent, justSynced, ok bool) {
	if err != nil {
		if !s.synchronized {
			s.skipped++
			return ev, false, false
		}
		return frameEvent{decodeErr: err}, false, true
	}
	if frame == nil {
		return ev, false, false
	}
	justSynced = !s.synchronized
	s.synchronized = true
	return frameEvent{
		frame:            frame,
		validationErrors: sht.ValidateReading(frame.Reading()),
	}, justSynced, true
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	conn, connInfo, err := openConnection(conf)
	if err != nil {
		return err
	}
	defer conn.Close()

	decoder := sht.NewDecoder()
	decoder.SetTimeout(conf.SHT.Timeout)

	if useTUI {
		return runTUIMode(conn, connInfo, decoder)
	}
	return runTextMode(conn, connInfo, decoder)
}

func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
	fmt.Printf("  >>> FRAME DROPPED <<<\n\n")
}

func printValidationErrors(frame *sht.Frame, errors []sht.ValidationError) {
	timestamp := frame.Timestamp().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m temp_ticks=%d hum_ticks=%d\n",
		timestamp, frame.TemperatureTicks(), frame.HumidityTicks())
	fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")

	for i, err := range errors {
		switch err.Type {
		case sht.AnomalyTemperatureTicks, sht.AnomalyHumidityTicks:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
		default:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
		}
	}
	fmt.Printf("  >>> READING SUSPECT <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(conn Connection, connInfo string, decoder *sht.Decoder) error {
	p := tea.NewProgram(initialModel(connInfo, statsInterval, showAll), tea.WithAltScreen())

	go func() {
		tracker := &syncTracker{}
		err := readLoop(conn, func(data []byte) {
			for _, b := range data {
				frame, err := decoder.DecodeByte(b)
				ev, justSynced, ok := tracker.observe(frame, err)
				if justSynced {
					p.Send(syncMsg{invalidBytes: tracker.skipped})
				}
				if ok {
					p.Send(frameMsg(ev))
				}
			}
		})
		p.Send(connectionLostMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(conn Connection, connInfo string, decoder *sht.Decoder) error {
	fmt.Printf("Meteostat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := sht.NewStatistics()
	tracker := &syncTracker{}

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	chunks := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go func() {
		readErr <- readLoop(conn, func(data []byte) {
			chunk := make([]byte, len(data))
			copy(chunk, data)
			chunks <- chunk
		})
		close(chunks)
	}()

	for {
		select {
		case data, ok := <-chunks:
			if !ok {
				fmt.Println()
				fmt.Print(stats.String())
				return <-readErr
			}
			for _, b := range data {
				frame, err := decoder.DecodeByte(b)
				ev, justSynced, ok := tracker.observe(frame, err)
				if justSynced {
					if tracker.skipped > 0 {
						fmt.Printf("[SYNC] Synchronized after skipping %d invalid frames\n\n", tracker.skipped)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}
				if !ok {
					continue
				}

				stats.Update(ev.frame, ev.decodeErr, ev.validationErrors)
				switch {
				case ev.decodeErr != nil:
					printDecodeError(ev.decodeErr)
				case len(ev.validationErrors) > 0:
					printValidationErrors(ev.frame, ev.validationErrors)
				case showAll:
					fmt.Print(sht.FormatFrame(ev.frame))
				}
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
