// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/meteostat/pkg/sht"
)

var (
	simRate     float64
	simTemp     float32
	simHumidity float32
	simJitter   float32
	simCorrupt  float64
	simNoise    int
	simCount    int
	simOutput   string
	simSeed     int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Emit synthetic SHT frames",
	Long: `Generate SHT frames for a given temperature and humidity and write them to
the connection, a file, or stdout.

Readings wander by up to --jitter each frame. A fraction of frames can be sent
with a corrupt checksum (--corrupt) and random noise bytes can be inserted
between frames (--noise) to exercise decoder resynchronization.

Examples:
  meteostat simulate --output capture.bin --count 100 --rate 1000
  meteostat raw_log --file capture.bin
  meteostat simulate --port /dev/ttyUSB1 --corrupt 0.05 --noise 3`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Float64Var(&simRate, "rate", 10, "Frames per second")
	simulateCmd.Flags().Float32Var(&simTemp, "temp", 22.5, "Temperature in °C")
	simulateCmd.Flags().Float32Var(&simHumidity, "humidity", 45, "Relative humidity in %RH")
	simulateCmd.Flags().Float32Var(&simJitter, "jitter", 0.2, "Maximum random walk step per frame")
	simulateCmd.Flags().Float64Var(&simCorrupt, "corrupt", 0, "Fraction of frames sent with a bad checksum")
	simulateCmd.Flags().IntVar(&simNoise, "noise", 0, "Maximum random bytes inserted between frames")
	simulateCmd.Flags().IntVar(&simCount, "count", 0, "Number of frames to send (0 = until interrupted)")
	simulateCmd.Flags().StringVarP(&simOutput, "output", "o", "", "Write to a file instead of the connection ('-' for stdout)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed (0 = time based)")
}

// frameSimulator produces a random walk of frames
type frameSimulator struct {
	rng      *rand.Rand
	temp     float32
	humidity float32
	jitter   float32
	corrupt  float64
	noise    int
}

func (s *frameSimulator) walk(v, step, lo, hi float32) float32 {
	v += (s.rng.Float32()*2 - 1) * step
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// next returns the bytes for one frame including any leading noise, and
// whether the frame was corrupted
func (s *frameSimulator) next() ([]byte, bool) {
	s.temp = s.walk(s.temp, s.jitter, -40, 123.8)
	s.humidity = s.walk(s.humidity, s.jitter, 0, 100)
	hum, temp := sht.Ticks(s.temp, s.humidity)

	var out []byte
	if s.noise > 0 {
		for i := s.rng.Intn(s.noise + 1); i > 0; i-- {
			// no sync bytes in noise so the frame count stays predictable
			out = append(out, byte(s.rng.Intn(sht.SyncByte)))
		}
	}

	frame := sht.EncodeFrame(temp, hum)
	corrupted := s.corrupt > 0 && s.rng.Float64() < s.corrupt
	if corrupted {
		frame[sht.FrameSize-1] ^= byte(s.rng.Intn(255) + 1)
	}
	return append(out, frame...), corrupted
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simRate <= 0 {
		return fmt.Errorf("--rate must be positive")
	}

	var out io.Writer
	var info string
	switch simOutput {
	case "":
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		conn, connInfo, err := openConnection(conf)
		if err != nil {
			return err
		}
		defer conn.Close()
		out, info = conn, connInfo
	case "-":
		out, info = os.Stdout, "stdout"
	default:
		f, err := os.Create(simOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out, info = f, simOutput
	}

	seed := simSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim := &frameSimulator{
		rng:      rand.New(rand.NewSource(seed)),
		temp:     simTemp,
		humidity: simHumidity,
		jitter:   simJitter,
		corrupt:  simCorrupt,
		noise:    simNoise,
	}

	fmt.Fprintf(os.Stderr, "Meteostat - Frame Simulator\n")
	fmt.Fprintf(os.Stderr, "Output: %s | %.1f frames/s | seed %d\n", info, simRate, seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / simRate))
	defer ticker.Stop()

	sent, corrupted := 0, 0
	for simCount == 0 || sent < simCount {
		select {
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "Sent %d frames (%d corrupted)\n", sent, corrupted)
			return nil
		case <-ticker.C:
		}

		data, bad := sim.next()
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("write failed after %d frames: %w", sent, err)
		}
		sent++
		if bad {
			corrupted++
		}
	}

	fmt.Fprintf(os.Stderr, "Sent %d frames (%d corrupted)\n", sent, corrupted)
	return nil
}
