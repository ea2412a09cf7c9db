// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the optional meteostat YAML configuration. Every
// value has a default matching the flight firmware, so an empty file is a
// valid configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/Thermoquad/meteostat/pkg/downlink"
	"github.com/Thermoquad/meteostat/pkg/heater"
	"github.com/Thermoquad/meteostat/pkg/scheduler"
	"github.com/Thermoquad/meteostat/pkg/wind"
)

type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	SHT       SHTConfig       `yaml:"sht"`
	Heater    HeaterConfig    `yaml:"heater"`
	Wind      WindConfig      `yaml:"wind"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Downlink  DownlinkConfig  `yaml:"downlink"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type SHTConfig struct {
	// Timeout drops a partial frame after this much silence, 0 disables
	Timeout time.Duration `yaml:"timeout"`
}

type HeaterConfig struct {
	KP          float32 `yaml:"kp"`
	KI          float32 `yaml:"ki"`
	DutyMax     uint32  `yaml:"duty-max"`
	Target      float32 `yaml:"target"`
	PWMDir      string  `yaml:"pwm-dir"`
	ThermalZone string  `yaml:"thermal-zone"`
	Freq        int     `yaml:"freq"`
}

type WindConfig struct {
	Step    float32 `yaml:"step"`
	Freq    int     `yaml:"freq"`
	Running bool    `yaml:"running"`
}

type SchedulerConfig struct {
	MainFreq int `yaml:"main-freq"`
}

type DownlinkConfig struct {
	SenderID uint8  `yaml:"sender-id"`
	Output   string `yaml:"output"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Port: "/dev/ttyS1",
			Baud: 9600,
		},
		Heater: HeaterConfig{
			KP:          heater.DefaultKP,
			KI:          heater.DefaultKI,
			DutyMax:     heater.DefaultDutyMax,
			Target:      heater.DefaultTarget,
			PWMDir:      heater.DefaultPWMDir,
			ThermalZone: "/sys/class/thermal/thermal_zone0/temp",
			Freq:        50,
		},
		Wind: WindConfig{
			Step:    wind.DefaultStep,
			Freq:    10,
			Running: true,
		},
		Scheduler: SchedulerConfig{
			MainFreq: scheduler.DefaultMainFreq,
		},
		Downlink: DownlinkConfig{
			SenderID: downlink.DefaultSenderID,
		},
	}
}

// ParseConfigFile reads and validates a YAML configuration file
func ParseConfigFile(filename string) (*Config, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(buf)
}

// ParseConfig overlays YAML on the defaults and validates the result
func ParseConfig(buf []byte) (*Config, error) {
	conf := Default()
	if err := yaml.UnmarshalStrict(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial baud must be positive, got %d", c.Serial.Baud)
	}
	if c.SHT.Timeout < 0 {
		return errors.New("sht timeout must not be negative")
	}
	if c.Heater.KP < 0 || c.Heater.KI < 0 {
		return errors.New("heater gains must not be negative")
	}
	if c.Heater.DutyMax < 100 {
		return fmt.Errorf("heater duty-max must be at least 100ns, got %d", c.Heater.DutyMax)
	}
	if c.Scheduler.MainFreq <= 0 {
		return fmt.Errorf("scheduler main-freq must be positive, got %d", c.Scheduler.MainFreq)
	}
	if err := c.checkDivisor("heater", c.Heater.Freq); err != nil {
		return err
	}
	return c.checkDivisor("wind", c.Wind.Freq)
}

func (c *Config) checkDivisor(name string, freq int) error {
	if freq <= 0 || c.Scheduler.MainFreq%freq != 0 {
		return fmt.Errorf("%s freq %d Hz must divide main-freq %d Hz", name, freq, c.Scheduler.MainFreq)
	}
	return nil
}

// HeaterController returns the controller settings. TMP_STATUS is sent
// once per second of heater ticks.
func (c *Config) HeaterController() heater.Config {
	return heater.Config{
		KP:          c.Heater.KP,
		KI:          c.Heater.KI,
		DutyMax:     c.Heater.DutyMax,
		Target:      c.Heater.Target,
		StatusEvery: c.Heater.Freq,
	}
}
