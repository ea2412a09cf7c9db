// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sht

import (
	"fmt"
	"time"
)

// ChecksumError is returned when a completed frame fails validation
type ChecksumError struct {
	Expected uint8
	Received uint8
}

// Error implements the error interface
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%02X, got 0x%02X", e.Expected, e.Received)
}

// Decoder implements the SHT frame decoder state machine
type Decoder struct {
	buffer [FrameSize]byte
	count  int // bytes of the current frame seen, sync included

	timeout  time.Duration
	lastByte time.Time
	nowFunc  func() time.Time
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		nowFunc: time.Now,
	}
}

// SetTimeout drops a partial frame when no byte arrived for longer than
// timeout. Zero disables it, leaving a stalled frame pending forever.
func (d *Decoder) SetTimeout(timeout time.Duration) {
	d.timeout = timeout
}

// Reset drops any partial frame and returns to idle
func (d *Decoder) Reset() {
	d.count = 0
}

// State returns the current framing state
func (d *Decoder) State() State {
	if d.count == 0 {
		return StateIdle
	}
	return StateAccumulating
}

// Pending returns the number of bytes of the current partial frame,
// including the sync byte
func (d *Decoder) Pending() int {
	return d.count
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed frame, or nil if the frame is incomplete.
// Returns a *ChecksumError if a completed frame fails validation; the
// decoder is back to idle in either case.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	now := d.nowFunc()
	if d.count > 0 && d.timeout > 0 && now.Sub(d.lastByte) > d.timeout {
		d.Reset()
	}
	d.lastByte = now

	if d.count == 0 {
		// Waiting for sync
		if b == SyncByte {
			d.count = 1
		}
		return nil, nil
	}

	// 0xFF inside a frame is data, not a resync
	d.buffer[d.count] = b
	d.count++
	if d.count < FrameSize {
		return nil, nil
	}
	d.count = 0

	temperatureTicks := uint16(d.buffer[1]) | uint16(d.buffer[2])<<8
	humidityTicks := uint16(d.buffer[3]) | uint16(d.buffer[4])<<8
	calculated := Checksum(d.buffer[1:5])

	if calculated != d.buffer[5] {
		return nil, &ChecksumError{Expected: calculated, Received: d.buffer[5]}
	}

	return &Frame{
		temperatureTicks: temperatureTicks,
		humidityTicks:    humidityTicks,
		checksum:         d.buffer[5],
		timestamp:        now,
	}, nil
}
