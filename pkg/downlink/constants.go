// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package downlink frames telemetry sent from the autopilot to the ground.
//
// Each packet is START, then the byte-stuffed section (length, sender ID,
// CBOR payload, CRC-16-CCITT big-endian), then END. The CBOR payload is a
// two element array [msg_id, {field: value}].
package downlink

// Framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Packet size limits
const (
	MaxPacketSize  = 128 // unstuffed length + sender + payload + CRC
	MaxPayloadSize = 124
	headerSize     = 2
	crcSize        = 2
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// DefaultSenderID identifies the aircraft when none is configured
const DefaultSenderID = 1

// Message types
const (
	MsgSHTStatus = 0x40
	MsgTmpStatus = 0x41
	MsgHeading   = 0x42
)

// SHT_STATUS field keys
const (
	FieldHumidityTicks    = 0
	FieldTemperatureTicks = 1
	FieldHumidity         = 2
	FieldTemperature      = 3
)

// TMP_STATUS field keys
const (
	FieldDutyCycle = 0
	FieldTmpTemp   = 1
)

// HEADING field keys
const (
	FieldHeading = 0
)

// Decoder states
const (
	stateIdle = iota
	stateLength
	stateSender
	statePayload
	stateCRC1
	stateCRC2
	stateEnd
)
