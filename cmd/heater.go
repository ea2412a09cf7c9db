// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/meteostat/pkg/heater"
	"github.com/Thermoquad/meteostat/pkg/scheduler"
)

var (
	heaterPWMDir      string
	heaterThermalZone string
	heaterTarget      float32
	heaterDuration    time.Duration
)

var heaterCmd = &cobra.Command{
	Use:   "heater",
	Short: "Run the INS heater PI loop on its own",
	Long: `Hold the IMU at a constant temperature by driving a sysfs PWM channel
from a thermal zone reading.

The PWM run and duty attributes are opened once at start. If any of the
initial writes fails the controller stays disabled for the whole run and only
status lines are printed. Duty write failures are logged at most once per
second and the loop keeps going.

Status (duty %, temperature) is printed once per second.

Examples:
  meteostat heater
  meteostat heater --pwm-dir /sys/class/pwm/pwm_6 --target 45
  meteostat heater --thermal-zone /sys/class/thermal/thermal_zone1/temp`,
	RunE: runHeater,
}

func init() {
	rootCmd.AddCommand(heaterCmd)
	heaterCmd.Flags().StringVar(&heaterPWMDir, "pwm-dir", "", "PWM sysfs directory (default from config)")
	heaterCmd.Flags().StringVar(&heaterThermalZone, "thermal-zone", "", "Thermal zone temperature file (default from config)")
	heaterCmd.Flags().Float32Var(&heaterTarget, "target", 0, "Target temperature in °C (default from config)")
	heaterCmd.Flags().DurationVar(&heaterDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
}

// statusPrinter prints TMP_STATUS values instead of sending them
type statusPrinter struct{}

func (statusPrinter) SendTmpStatus(dutyPercent uint16, temperature float32) {
	fmt.Printf("[%s] duty=%3d%% temp=%.2f°C\n", time.Now().Format("15:04:05.000"), dutyPercent, temperature)
}

// applyHeaterFlags overrides the heater config with any flags given
func applyHeaterFlags(cmd *cobra.Command, conf *heaterSettings) {
	flags := cmd.Flags()
	if flags.Changed("pwm-dir") {
		conf.pwmDir = heaterPWMDir
	}
	if flags.Changed("thermal-zone") {
		conf.thermalZone = heaterThermalZone
	}
	if flags.Changed("target") {
		conf.controller.Target = heaterTarget
	}
}

type heaterSettings struct {
	controller  heater.Config
	pwmDir      string
	thermalZone string
	freq        int
	mainFreq    int
}

// heaterTask reads the thermal zone and runs one controller step. A failed
// read skips the step.
func heaterTask(ctrl *heater.Controller, src heater.TemperatureSource, limiter *heater.LogLimiter) func() {
	return func() {
		temp, err := src.Temperature()
		if err != nil {
			limiter.Printf("heater: could not read temperature: %v", err)
			return
		}
		ctrl.Periodic(temp)
	}
}

func runHeater(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	settings := heaterSettings{
		controller:  conf.HeaterController(),
		pwmDir:      conf.Heater.PWMDir,
		thermalZone: conf.Heater.ThermalZone,
		freq:        conf.Heater.Freq,
		mainFreq:    conf.Scheduler.MainFreq,
	}
	applyHeaterFlags(cmd, &settings)

	sched, err := scheduler.New(settings.mainFreq)
	if err != nil {
		return err
	}

	ctrl := heater.NewController(settings.controller, heater.SysfsPWM{Dir: settings.pwmDir})
	ctrl.SetStatusSink(statusPrinter{})
	source := heater.ThermalZone{Path: settings.thermalZone}

	fmt.Printf("Meteostat - INS Heater\n")
	fmt.Printf("PWM: %s\n", settings.pwmDir)
	fmt.Printf("Thermal zone: %s\n", settings.thermalZone)
	fmt.Printf("Target: %.1f°C | KP=%g KI=%g | duty max %d ns | %d Hz\n",
		settings.controller.Target, settings.controller.KP, settings.controller.KI,
		settings.controller.DutyMax, settings.freq)

	if !ctrl.Init() {
		fmt.Printf("Heater disabled: PWM init failed, reporting status only\n")
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			log.Printf("heater: close: %v", err)
		}
	}()
	fmt.Printf("Press Ctrl+C to exit\n\n")

	limiter := heater.NewLogLimiter(time.Second)
	if err := sched.AddPeriodic("heater", settings.freq, heaterTask(ctrl, source, limiter)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if heaterDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, heaterDuration)
		defer cancel()
	}

	err = sched.Run(ctx)
	fmt.Printf("\nStopped after %d ticks, integral %.1f, last duty %d ns\n",
		sched.Ticks(), ctrl.SumError(), ctrl.Output())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
