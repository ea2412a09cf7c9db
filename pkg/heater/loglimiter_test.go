// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import (
	"bytes"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	flags := log.Flags()
	log.SetFlags(0)

	logs := new(bytes.Buffer)
	log.SetOutput(logs)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return logs
}

func TestLogLimiter_DistinctMessagesPass(t *testing.T) {
	logs := captureLogs(t)

	limiter := NewLogLimiter(time.Minute)
	limiter.Print("duty write failed")
	limiter.Printf("temperature: %d", 42)

	assert.Equal(t, "duty write failed\ntemperature: 42\n", logs.String())
}

func TestLogLimiter_SuppressesRepeats(t *testing.T) {
	logs := captureLogs(t)

	now := time.Now()
	limiter := NewLogLimiter(2 * time.Second)
	limiter.nowFunc = func() time.Time { return now }

	limiter.Print("write failed")
	now = now.Add(time.Second)
	limiter.Print("write failed")
	limiter.Printf("write %s", "failed")
	assert.Equal(t, "write failed\n", logs.String())

	now = now.Add(2 * time.Second)
	limiter.Print("write failed")
	assert.Equal(t, "write failed\nwrite failed (repeated 2 times)\n", logs.String())
}

func TestLogLimiter_NewMessageResetsWindow(t *testing.T) {
	logs := captureLogs(t)

	now := time.Now()
	limiter := NewLogLimiter(time.Minute)
	limiter.nowFunc = func() time.Time { return now }

	limiter.Print("a")
	limiter.Print("b")
	limiter.Print("a")

	assert.Equal(t, "a\nb\na\n", logs.String())
}

func TestLogLimiter_ReportsDroppedOnChange(t *testing.T) {
	logs := captureLogs(t)

	now := time.Now()
	limiter := NewLogLimiter(time.Minute)
	limiter.nowFunc = func() time.Time { return now }

	limiter.Print("a")
	limiter.Print("a")
	limiter.Print("a")
	limiter.Print("b")

	assert.Equal(t, "a\na (repeated 2 times)\nb\n", logs.String())
}

func TestLogLimiter_Output(t *testing.T) {
	var lines []string
	limiter := NewLogLimiter(time.Minute)
	limiter.output = func(line string) { lines = append(lines, line) }

	limiter.Printf("duty %d", 1)
	limiter.Printf("duty %d", 1)

	assert.Equal(t, []string{"duty 1"}, lines)
}
