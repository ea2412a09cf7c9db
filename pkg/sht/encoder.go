// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sht

// EncodeFrame creates a complete wire-formatted frame
func EncodeFrame(temperatureTicks, humidityTicks uint16) []byte {
	data := dataBytes(temperatureTicks, humidityTicks)

	frame := make([]byte, 0, FrameSize)
	frame = append(frame, SyncByte)
	frame = append(frame, data...)
	frame = append(frame, Checksum(data))
	return frame
}

// EncodeFrameWithChecksum creates a frame carrying an arbitrary checksum
// byte. Used to inject corrupt frames.
func EncodeFrameWithChecksum(temperatureTicks, humidityTicks uint16, checksum uint8) []byte {
	frame := EncodeFrame(temperatureTicks, humidityTicks)
	frame[FrameSize-1] = checksum
	return frame
}

// dataBytes returns the four little-endian data bytes of a frame
func dataBytes(temperatureTicks, humidityTicks uint16) []byte {
	return []byte{
		byte(temperatureTicks),
		byte(temperatureTicks >> 8),
		byte(humidityTicks),
		byte(humidityTicks >> 8),
	}
}
