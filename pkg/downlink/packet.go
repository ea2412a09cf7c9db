// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package downlink

import "time"

// Packet represents a decoded downlink packet
type Packet struct {
	length      uint8
	sender      uint8
	cborPayload []byte // raw CBOR bytes: [msg_type, payload_map]
	crc         uint16
	timestamp   time.Time

	// parsed lazily from cborPayload
	msgType    uint8
	payloadMap map[int]interface{}
	parsed     bool
	parseErr   error
}

// NewPacketWithPayload creates a packet from message type and payload map
func NewPacketWithPayload(sender, msgType uint8, payload map[int]interface{}) *Packet {
	return &Packet{
		sender:     sender,
		msgType:    msgType,
		payloadMap: payload,
		parsed:     true,
		timestamp:  time.Now(),
	}
}

func (p *Packet) ensureParsed() {
	if p.parsed {
		return
	}
	p.parsed = true
	p.msgType, p.payloadMap, p.parseErr = ParseCBORMessage(p.cborPayload)
}

// Length returns the CBOR payload length
func (p *Packet) Length() uint8 {
	return p.length
}

// Sender returns the aircraft ID that sent the packet
func (p *Packet) Sender() uint8 {
	return p.sender
}

// Type returns the message type (parsed from CBOR)
func (p *Packet) Type() uint8 {
	p.ensureParsed()
	return p.msgType
}

// Payload returns the raw CBOR payload bytes
func (p *Packet) Payload() []byte {
	return p.cborPayload
}

// PayloadMap returns the decoded CBOR payload map (nil for empty payloads)
func (p *Packet) PayloadMap() map[int]interface{} {
	p.ensureParsed()
	return p.payloadMap
}

// ParseError returns any error from parsing the CBOR payload
func (p *Packet) ParseError() error {
	p.ensureParsed()
	return p.parseErr
}

func (p *Packet) CRC() uint16 {
	return p.crc
}

// Timestamp returns the decode timestamp
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}
