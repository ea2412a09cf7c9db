// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/meteostat/pkg/downlink"
	"github.com/Thermoquad/meteostat/pkg/heater"
	"github.com/Thermoquad/meteostat/pkg/scheduler"
	"github.com/Thermoquad/meteostat/pkg/sht"
	"github.com/Thermoquad/meteostat/pkg/uart"
	"github.com/Thermoquad/meteostat/pkg/wind"
)

const runRingSize = 4096

var (
	runDownlink string
	runNoHeater bool
	runNoWind   bool
	runHeatFrom string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the meteo payload loop",
	Long: `Run every module from one scheduler loop, the way the autopilot does.

SHT bytes from the connection are buffered by a reader goroutine and decoded
on the scheduler's event hook. Each valid reading is sent as SHT_STATUS. The
INS heater runs at heater.freq from the thermal zone and reports TMP_STATUS
once per second. The wind estimator runs at wind.freq and sends HEADING.

Downlink packets go to --downlink (or downlink.output in the config):
  -              stdout
  ws://, wss://  a WebSocket bridge
  <path>         a file, truncated at start
  (empty)        discarded, only counted

Examples:
  meteostat run --port /dev/ttyS1 --downlink /tmp/downlink.bin
  meteostat downlink_log --file /tmp/downlink.bin
  meteostat run --file capture.bin --no-heater --downlink -`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDownlink, "downlink", "", "Downlink output (default from config)")
	runCmd.Flags().BoolVar(&runNoHeater, "no-heater", false, "Do not drive the heater PWM")
	runCmd.Flags().BoolVar(&runNoWind, "no-wind", false, "Do not run the wind estimator")
	runCmd.Flags().StringVar(&runHeatFrom, "heater-sensor", "zone", "Heater temperature source: zone (thermal zone) or sht (latest SHT reading)")
}

// openDownlink opens the downlink destination and returns it with a closer
// and a description
func openDownlink(target string) (io.Writer, func() error, string, error) {
	nop := func() error { return nil }
	switch {
	case target == "":
		return io.Discard, nop, "discarded", nil
	case target == "-":
		return os.Stdout, nop, "stdout", nil
	case strings.HasPrefix(target, "ws://"), strings.HasPrefix(target, "wss://"):
		conn, err := openWebSocket(target, "", "", wsNoSSLVerify)
		if err != nil {
			return nil, nil, "", err
		}
		return conn, conn.Close, "WebSocket: " + target, nil
	default:
		f, err := os.Create(target)
		if err != nil {
			return nil, nil, "", fmt.Errorf("failed to open downlink: %w", err)
		}
		return f, f.Close, "File: " + target, nil
	}
}

// heaterSource picks where the heater loop reads its temperature
func heaterSource(name, zone string, receiver *sht.Receiver) (heater.TemperatureSource, error) {
	switch name {
	case "zone":
		return heater.ThermalZone{Path: zone}, nil
	case "sht":
		return heater.TemperatureFunc(func() (float32, error) {
			r, ok := receiver.Latest()
			if !ok {
				return 0, errNoReading
			}
			return r.Temperature, nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown heater sensor %q (use zone or sht)", name)
	}
}

var errNoReading = errors.New("no SHT reading yet")

func runRun(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("downlink") {
		conf.Downlink.Output = runDownlink
	}

	conn, connInfo, err := openConnection(conf)
	if err != nil {
		return err
	}
	defer conn.Close()

	out, closeOut, outInfo, err := openDownlink(conf.Downlink.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	sched, err := scheduler.New(conf.Scheduler.MainFreq)
	if err != nil {
		return err
	}
	ring, err := uart.NewRing(runRingSize)
	if err != nil {
		return err
	}
	sink := downlink.NewSink(out, conf.Downlink.SenderID)

	receiver := sht.NewReceiver(ring, sink)
	receiver.Decoder().SetTimeout(conf.SHT.Timeout)
	sched.AddEvent(func() { receiver.Event() })

	var ctrl *heater.Controller
	if !runNoHeater {
		ctrl = heater.NewController(conf.HeaterController(), heater.SysfsPWM{Dir: conf.Heater.PWMDir})
		ctrl.SetStatusSink(sink)
		if !ctrl.Init() {
			fmt.Fprintf(os.Stderr, "Heater disabled: PWM init failed\n")
		}
		defer func() {
			if err := ctrl.Close(); err != nil {
				log.Printf("heater: close: %v", err)
			}
		}()
		limiter := heater.NewLogLimiter(time.Second)
		source, err := heaterSource(runHeatFrom, conf.Heater.ThermalZone, receiver)
		if err != nil {
			return err
		}
		if err := sched.AddPeriodic("heater", conf.Heater.Freq, heaterTask(ctrl, source, limiter)); err != nil {
			return err
		}
	}

	var estimator *wind.Estimator
	if !runNoWind {
		estimator = wind.NewEstimator(sink)
		estimator.SetStep(conf.Wind.Step)
		estimator.Init()
		if conf.Wind.Running {
			estimator.Start()
		}
		if err := sched.AddPeriodic("wind", conf.Wind.Freq, estimator.Periodic); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "Meteostat - Payload Loop\n")
	fmt.Fprintf(os.Stderr, "Connection: %s\n", connInfo)
	fmt.Fprintf(os.Stderr, "Downlink: %s (sender %d)\n", outInfo, conf.Downlink.SenderID)
	fmt.Fprintf(os.Stderr, "Scheduler: %d Hz %v\n", sched.MainFreq(), sched.Tasks())
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		err := ring.Fill(conn, sched.Wake)
		// one last pass so bytes read before the stream ended are decoded
		sched.Wake()
		if isClosed(err) {
			err = nil
		}
		readErr <- err
		cancel()
	}()

	err = sched.Run(ctx)
	receiver.Event()

	var connErr error
	select {
	case connErr = <-readErr:
	default:
	}

	sent, failed := sink.Counts()
	fmt.Fprintf(os.Stderr, "\nStopped after %d ticks\n", sched.Ticks())
	fmt.Fprintf(os.Stderr, "Downlink: %d packets sent, %d failed\n", sent, failed)
	if dropped := ring.Dropped(); dropped > 0 {
		fmt.Fprintf(os.Stderr, "Receive buffer overflowed: %d bytes dropped\n", dropped)
	}
	if ctrl != nil {
		fmt.Fprintf(os.Stderr, "Heater: enabled=%v integral=%.1f duty=%d ns\n", ctrl.Enabled(), ctrl.SumError(), ctrl.Output())
	}
	if estimator != nil {
		fmt.Fprintf(os.Stderr, "Wind: heading %.1f°\n", estimator.Heading())
	}

	if connErr != nil {
		return fmt.Errorf("read error: %w", connErr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
