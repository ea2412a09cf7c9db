// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sht

import (
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	ValidFrames      uint64
	ChecksumErrors   uint64
	AnomalousFrames  uint64
	TickRangeErrors  uint64
	TemperatureRange uint64
	HumidityClamped  uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec

	nowFunc func() time.Time
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		nowFunc:        time.Now,
	}
}

// Update updates statistics based on a frame and its errors. The decoder
// only fails on checksum mismatch, so every decode error counts there.
func (s *Statistics) Update(frame *Frame, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = s.nowFunc()

	if decodeErr != nil {
		s.ChecksumErrors++
		return
	}

	if len(validationErrors) == 0 {
		s.ValidFrames++
		return
	}

	s.AnomalousFrames++
	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyTemperatureTicks, AnomalyHumidityTicks:
			s.TickRangeErrors++
		case AnomalyTemperatureRange:
			s.TemperatureRange++
		case AnomalyHumidityClamped:
			s.HumidityClamped++
		}
	}
}

// Errors returns the number of frames that failed the checksum or validation
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.AnomalousFrames
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := s.nowFunc().Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, checksumPercent, anomalousPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		checksumPercent = float64(s.ChecksumErrors) * 100.0 / float64(s.TotalFrames)
		anomalousPercent = float64(s.AnomalousFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := s.nowFunc().Sub(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, checksumPercent)
	}
	if s.AnomalousFrames > 0 {
		result += fmt.Sprintf("Anomalous:       %8d (%.1f%%)\n", s.AnomalousFrames, anomalousPercent)
		if s.TickRangeErrors > 0 {
			result += fmt.Sprintf("  Tick Range:       %5d\n", s.TickRangeErrors)
		}
		if s.TemperatureRange > 0 {
			result += fmt.Sprintf("  Temp Range:       %5d\n", s.TemperatureRange)
		}
		if s.HumidityClamped > 0 {
			result += fmt.Sprintf("  Humidity Clamped: %5d\n", s.HumidityClamped)
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := s.nowFunc()
	*s = Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		nowFunc:        s.nowFunc,
	}
}
