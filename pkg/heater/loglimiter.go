// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import (
	"fmt"
	"log"
	"time"
)

// LogLimiter drops a log line that repeats the previous one within an
// interval. The number of dropped repeats is reported when the line is let
// through again, or when a different line takes its place.
type LogLimiter struct {
	interval time.Duration
	nowFunc  func() time.Time
	output   func(line string)

	run repeatRun
}

// repeatRun tracks the series of identical lines currently being limited
type repeatRun struct {
	line    string
	shown   time.Time
	dropped int
}

// NewLogLimiter creates a limiter writing to the standard logger
func NewLogLimiter(interval time.Duration) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		nowFunc:  time.Now,
		output:   func(line string) { log.Print(line) },
	}
}

// Printf formats and logs a line
func (l *LogLimiter) Printf(format string, args ...interface{}) {
	l.Print(fmt.Sprintf(format, args...))
}

// Print logs line unless it repeats the last shown line within the interval
func (l *LogLimiter) Print(line string) {
	now := l.nowFunc()
	if line == l.run.line && now.Sub(l.run.shown) < l.interval {
		l.run.dropped++
		return
	}

	if line == l.run.line {
		l.output(withRepeats(line, l.run.dropped))
	} else {
		if l.run.dropped > 0 {
			l.output(withRepeats(l.run.line, l.run.dropped))
		}
		l.output(line)
	}
	l.run = repeatRun{line: line, shown: now}
}

func withRepeats(line string, n int) string {
	if n == 0 {
		return line
	}
	return fmt.Sprintf("%s (repeated %d times)", line, n)
}
