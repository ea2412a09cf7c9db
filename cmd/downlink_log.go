// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/meteostat/pkg/downlink"
)

var (
	downlinkLogValidate bool
	downlinkLogFilter   []string
	downlinkLogHex      bool
)

var downlinkLogCmd = &cobra.Command{
	Use:   "downlink_log",
	Short: "Display decoded downlink telemetry packets",
	Long: `Decode and display downlink packets (SHT_STATUS, TMP_STATUS, HEADING) as
they arrive, from a serial port, a WebSocket bridge or a file written by
'meteostat run --downlink'.

Examples:
  meteostat downlink_log --file /tmp/downlink.bin
  meteostat downlink_log --port /dev/ttyUSB0 --baud 57600 --validate
  meteostat downlink_log --file /tmp/downlink.bin --type SHT_STATUS`,
	RunE: runDownlinkLog,
}

func init() {
	rootCmd.AddCommand(downlinkLogCmd)
	downlinkLogCmd.Flags().BoolVar(&downlinkLogValidate, "validate", false, "Report packets with implausible values")
	downlinkLogCmd.Flags().StringSliceVar(&downlinkLogFilter, "type", nil, "Only show these message types (e.g. SHT_STATUS,HEADING)")
	downlinkLogCmd.Flags().BoolVar(&downlinkLogHex, "hex", false, "Also dump the raw bytes of every packet")
}

func runDownlinkLog(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	conn, connInfo, err := openConnection(conf)
	if err != nil {
		return err
	}
	defer conn.Close()

	show := make(map[string]bool, len(downlinkLogFilter))
	for _, name := range downlinkLogFilter {
		show[name] = true
	}

	fmt.Printf("Meteostat - Downlink Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := downlink.NewDecoder()
	var packets, crcErrors, decodeErrors, anomalies int

	err = readLoop(conn, func(data []byte) {
		for _, b := range data {
			packet, err := decoder.DecodeByte(b)
			if err != nil {
				var crcErr *downlink.CRCError
				if errors.As(err, &crcErr) {
					crcErrors++
				} else {
					decodeErrors++
				}
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			if packet == nil {
				continue
			}
			packets++

			if len(show) > 0 && !show[downlink.FormatMessageType(packet.Type())] {
				continue
			}
			fmt.Print(downlink.FormatPacket(packet))
			if downlinkLogHex {
				if raw, err := downlink.EncodePacket(packet); err == nil {
					fmt.Printf("  Raw: % X\n", raw)
				}
			}
			if downlinkLogValidate {
				for _, v := range downlink.ValidatePacket(packet) {
					anomalies++
					fmt.Printf("  [ANOMALY] %s\n", v.Message)
				}
			}
		}
	})

	fmt.Printf("\n%d packets, %d CRC errors, %d decode errors", packets, crcErrors, decodeErrors)
	if downlinkLogValidate {
		fmt.Printf(", %d anomalies", anomalies)
	}
	fmt.Println()
	if err == nil {
		log.Printf("Connection closed")
	}
	return err
}
