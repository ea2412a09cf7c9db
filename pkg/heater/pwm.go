// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import (
	"io"
	"os"
	"path/filepath"
)

// PWM opens the two control handles of a PWM channel. The run handle
// accepts "0"/"1", the duty handle an ASCII decimal duty in nanoseconds.
type PWM interface {
	OpenRun() (io.WriteCloser, error)
	OpenDuty() (io.WriteCloser, error)
}

// SysfsPWM is a PWM channel exposed as attribute files under Dir
type SysfsPWM struct {
	Dir string
}

// OpenRun opens the run attribute
func (p SysfsPWM) OpenRun() (io.WriteCloser, error) {
	return openAttr(filepath.Join(p.Dir, runAttr))
}

// OpenDuty opens the duty_ns attribute
func (p SysfsPWM) OpenDuty() (io.WriteCloser, error) {
	return openAttr(filepath.Join(p.Dir, dutyAttr))
}

func openAttr(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
}
