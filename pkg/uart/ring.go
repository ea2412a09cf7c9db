// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package uart provides the receive buffer between a byte transport and the
// event loop that parses it.
package uart

import (
	"errors"
	"io"
	"sync/atomic"
)

// ErrOverflow is returned by Write when the ring cannot hold all bytes.
// The bytes that fit are kept; the rest are dropped.
var ErrOverflow = errors.New("uart: receive buffer overflow")

// errEmpty is returned by ReadByte on an empty ring
var errEmpty = errors.New("uart: receive buffer empty")

// Ring is a single-producer, single-consumer byte ring.
// One goroutine writes (the transport reader), one reads (the event loop).
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	dropped atomic.Uint64
}

// NewRing creates a ring of the given size, which must be a power of two >= 2
func NewRing(size int) (*Ring, error) {
	if size < 2 || (size&(size-1)) != 0 {
		return nil, errors.New("uart: ring size must be power of two >= 2")
	}
	return &Ring{
		buf:  make([]byte, size),
		mask: uint32(size - 1),
	}, nil
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Space returns the number of bytes that can be written without overflow
func (r *Ring) Space() int {
	return int(r.size() - (r.wr.Load() - r.rd.Load()))
}

// Buffered returns the number of bytes waiting to be read
func (r *Ring) Buffered() int {
	return int(r.wr.Load() - r.rd.Load())
}

// Dropped returns the total number of bytes lost to overflow
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}

// Write copies as much of p as fits. Implements io.Writer.
func (r *Ring) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	space := int(r.size() - (wr - rd))

	n := len(p)
	if n > space {
		n = space
	}

	if n > 0 {
		size := r.size()
		wrIdx := wr & r.mask
		first := int(size - wrIdx)
		if first > n {
			first = n
		}
		copy(r.buf[wrIdx:wrIdx+uint32(first)], p[:first])
		if second := n - first; second > 0 {
			copy(r.buf[:second], p[first:n])
		}
		r.wr.Store(wr + uint32(n)) // release
	}

	if n < len(p) {
		r.dropped.Add(uint64(len(p) - n))
		return n, ErrOverflow
	}
	return n, nil
}

// ReadByte pops the oldest byte. Implements io.ByteReader.
func (r *Ring) ReadByte() (byte, error) {
	rd := r.rd.Load()
	if r.wr.Load() == rd { // acquire
		return 0, errEmpty
	}
	b := r.buf[rd&r.mask]
	r.rd.Store(rd + 1) // release
	return b, nil
}

// Fill copies from src into the ring until src returns an error, calling
// notify (if non-nil) after each chunk. Overflowing bytes are dropped and
// counted, never blocking the reader.
func (r *Ring) Fill(src io.Reader, notify func()) error {
	buf := make([]byte, 128)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			r.Write(buf[:n])
			if notify != nil {
				notify()
			}
		}
		if err != nil {
			return err
		}
	}
}
