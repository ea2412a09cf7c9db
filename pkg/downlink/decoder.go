// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package downlink

import (
	"fmt"
	"time"
)

// CRCError is returned when a packet's CRC does not match its contents
type CRCError struct {
	Expected uint16
	Received uint16
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("CRC mismatch: expected 0x%04X, got 0x%04X", e.Expected, e.Received)
}

// Decoder implements the downlink packet decoder state machine
type Decoder struct {
	state      int
	buffer     []byte // unstuffed length, sender, payload
	length     int
	crc        uint16
	escapeNext bool
	rawBuffer  []byte // raw bytes including framing
	nowFunc    func() time.Time
}

// NewDecoder creates a new downlink decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		buffer:    make([]byte, 0, MaxPacketSize),
		rawBuffer: make([]byte, 0, MaxPacketSize*2),
		nowFunc:   time.Now,
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.buffer = d.buffer[:0]
	d.length = 0
	d.crc = 0
	d.escapeNext = false
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the raw bytes accumulated for the current packet
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed packet, nil while incomplete, or an error when the
// packet in progress is dropped.
func (d *Decoder) DecodeByte(b byte) (*Packet, error) {
	if b == StartByte {
		d.Reset()
		d.rawBuffer = append(d.rawBuffer, b)
		d.state = stateLength
		return nil, nil
	}
	if d.state == stateIdle {
		return nil, nil
	}
	d.rawBuffer = append(d.rawBuffer, b)

	if b == EndByte {
		return d.finish()
	}

	if b == EscByte {
		if d.escapeNext {
			d.Reset()
			return nil, fmt.Errorf("double escape byte")
		}
		d.escapeNext = true
		return nil, nil
	}
	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	switch d.state {
	case stateLength:
		if b > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d)", b, MaxPayloadSize)
		}
		d.length = int(b)
		d.buffer = append(d.buffer, b)
		d.state = stateSender

	case stateSender:
		d.buffer = append(d.buffer, b)
		if d.length == 0 {
			d.state = stateCRC1
		} else {
			d.state = statePayload
		}

	case statePayload:
		d.buffer = append(d.buffer, b)
		if len(d.buffer) >= headerSize+d.length {
			d.state = stateCRC1
		}

	case stateCRC1:
		d.crc = uint16(b) << 8
		d.state = stateCRC2

	case stateCRC2:
		d.crc |= uint16(b)
		d.state = stateEnd

	case stateEnd:
		d.Reset()
		return nil, fmt.Errorf("expected END byte, got 0x%02X", b)
	}
	return nil, nil
}

func (d *Decoder) finish() (*Packet, error) {
	if d.escapeNext {
		d.Reset()
		return nil, fmt.Errorf("escape byte before END byte")
	}
	if d.state != stateEnd {
		state := d.state
		d.Reset()
		return nil, fmt.Errorf("unexpected END byte in state %d", state)
	}

	calculated := CalculateCRC(d.buffer)
	if calculated != d.crc {
		err := &CRCError{Expected: calculated, Received: d.crc}
		d.Reset()
		return nil, err
	}

	payload := make([]byte, d.length)
	copy(payload, d.buffer[headerSize:])
	p := &Packet{
		length:      uint8(d.length),
		sender:      d.buffer[1],
		cborPayload: payload,
		crc:         d.crc,
		timestamp:   d.nowFunc(),
	}
	d.Reset()
	return p, nil
}
