// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sht

// ByteSource is a UART receive buffer polled by the event loop.
// *uart.Ring satisfies it.
type ByteSource interface {
	Buffered() int
	ReadByte() (byte, error)
}

// TelemetrySink receives every valid reading. Sends are fire-and-forget.
type TelemetrySink interface {
	SendSHTStatus(r Reading)
}

// SinkFunc adapts a plain function to TelemetrySink
type SinkFunc func(r Reading)

// SendSHTStatus calls f(r)
func (f SinkFunc) SendSHTStatus(r Reading) {
	f(r)
}

// Receiver drains a byte source through a Decoder and forwards valid
// readings to a sink. Frames failing the checksum are dropped.
type Receiver struct {
	src     ByteSource
	decoder *Decoder
	sink    TelemetrySink

	latest    Reading
	available bool
}

// NewReceiver creates a receiver reading from src and reporting to sink
func NewReceiver(src ByteSource, sink TelemetrySink) *Receiver {
	return &Receiver{
		src:     src,
		decoder: NewDecoder(),
		sink:    sink,
	}
}

// Decoder returns the underlying frame decoder
func (r *Receiver) Decoder() *Decoder {
	return r.decoder
}

// Event consumes every buffered byte and returns the number of readings
// sent to the sink
func (r *Receiver) Event() int {
	sent := 0
	for r.src.Buffered() > 0 {
		b, err := r.src.ReadByte()
		if err != nil {
			break
		}
		if r.Parse(b) {
			sent++
		}
	}
	return sent
}

// Parse feeds a single byte and reports whether it completed a valid frame
func (r *Receiver) Parse(b byte) bool {
	frame, err := r.decoder.DecodeByte(b)
	if err != nil || frame == nil {
		return false
	}

	r.latest = frame.Reading()
	r.available = true
	if r.sink != nil {
		r.sink.SendSHTStatus(r.latest)
	}
	return true
}

// Latest returns the last valid reading, if any
func (r *Receiver) Latest() (Reading, bool) {
	return r.latest, r.available
}
