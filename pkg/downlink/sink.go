// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package downlink

import (
	"io"
	"log"
	"sync"

	"periph.io/x/conn/v3/physic"

	"github.com/Thermoquad/meteostat/pkg/sht"
)

// Sink encodes telemetry and writes each packet to an io.Writer. Failures
// are logged and counted; the caller is never blocked on them.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	sender uint8
	sent   uint64
	failed uint64
}

// NewSink creates a sink sending as the given aircraft ID
func NewSink(w io.Writer, sender uint8) *Sink {
	return &Sink{w: w, sender: sender}
}

// Send encodes and writes one message
func (s *Sink) Send(msgType uint8, payload map[int]interface{}) {
	data, err := EncodePacketFromValues(s.sender, msgType, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failed++
		log.Printf("downlink: could not encode %s: %v", FormatMessageType(msgType), err)
		return
	}
	if _, err := s.w.Write(data); err != nil {
		s.failed++
		log.Printf("downlink: could not send %s: %v", FormatMessageType(msgType), err)
		return
	}
	s.sent++
}

// SendSHTStatus sends an SHT_STATUS message for a sensor reading
func (s *Sink) SendSHTStatus(r sht.Reading) {
	s.Send(MsgSHTStatus, SHTStatus{
		HumidityTicks:    r.HumidityTicks,
		TemperatureTicks: r.TemperatureTicks,
		Humidity:         r.Humidity,
		Temperature:      r.Temperature,
	}.Payload())
}

// SendTmpStatus sends a TMP_STATUS message
func (s *Sink) SendTmpStatus(dutyPercent uint16, temperature float32) {
	s.Send(MsgTmpStatus, TmpStatus{DutyCycle: dutyPercent, Temperature: temperature}.Payload())
}

// SetHeading sends a HEADING message
func (s *Sink) SetHeading(heading physic.Angle) {
	rad := float64(heading) / float64(physic.Radian)
	s.Send(MsgHeading, Heading{Radians: float32(rad)}.Payload())
}

// Counts returns the number of packets sent and failed
func (s *Sink) Counts() (sent, failed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent, s.failed
}
