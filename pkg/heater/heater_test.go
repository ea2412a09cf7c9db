// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// ============================================================
// Fakes
// ============================================================

// fakeHandle records writes and can be made to fail
type fakeHandle struct {
	writes   []string
	failAt   int // 1-based write index that fails, 0 = never
	short    bool
	failAll  bool
	closed   bool
	attempts int
}

func (h *fakeHandle) Write(p []byte) (int, error) {
	h.attempts++
	if h.failAll || (h.failAt != 0 && h.attempts == h.failAt) {
		return 0, errors.New("write failed")
	}
	if h.short {
		return 0, nil
	}
	h.writes = append(h.writes, string(p))
	return len(p), nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

type fakePWM struct {
	run, duty         *fakeHandle
	runErr, dutyErr   error
	runOpen, dutyOpen int
}

func newFakePWM() *fakePWM {
	return &fakePWM{run: &fakeHandle{}, duty: &fakeHandle{}}
}

func (p *fakePWM) OpenRun() (io.WriteCloser, error) {
	p.runOpen++
	if p.runErr != nil {
		return nil, p.runErr
	}
	return p.run, nil
}

func (p *fakePWM) OpenDuty() (io.WriteCloser, error) {
	p.dutyOpen++
	if p.dutyErr != nil {
		return nil, p.dutyErr
	}
	return p.duty, nil
}

type statusRecord struct {
	duty uint16
	temp float32
}

type recordingStatus struct {
	reports []statusRecord
}

func (r *recordingStatus) SendTmpStatus(duty uint16, temp float32) {
	r.reports = append(r.reports, statusRecord{duty, temp})
}

func newEnabled(t *testing.T) (*Controller, *fakePWM) {
	t.Helper()
	pwm := newFakePWM()
	c := NewController(DefaultConfig(), pwm)
	if !c.Init() {
		t.Fatal("Init failed")
	}
	pwm.duty.writes = nil
	return c, pwm
}

func lastWrite(t *testing.T, h *fakeHandle) string {
	t.Helper()
	if len(h.writes) == 0 {
		t.Fatal("no writes recorded")
	}
	return h.writes[len(h.writes)-1]
}

// ============================================================
// Init Tests
// ============================================================

func TestInit_Success(t *testing.T) {
	pwm := newFakePWM()
	c := NewController(DefaultConfig(), pwm)

	if !c.Init() {
		t.Fatal("expected Init to succeed")
	}
	if !c.Enabled() {
		t.Error("expected controller enabled")
	}

	if len(pwm.duty.writes) != 1 || pwm.duty.writes[0] != "0" {
		t.Errorf("expected duty writes [0], got %v", pwm.duty.writes)
	}
	if len(pwm.run.writes) != 2 || pwm.run.writes[0] != "0" || pwm.run.writes[1] != "1" {
		t.Errorf("expected run writes [0 1], got %v", pwm.run.writes)
	}
	if pwm.run.closed || pwm.duty.closed {
		t.Error("handles must stay open after a successful init")
	}
}

func TestInit_Failures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(p *fakePWM)
		runClosed  bool
		dutyClosed bool
	}{
		{
			name:  "run open fails",
			setup: func(p *fakePWM) { p.runErr = os.ErrPermission },
		},
		{
			name:      "duty open fails",
			setup:     func(p *fakePWM) { p.dutyErr = os.ErrNotExist },
			runClosed: true,
		},
		{
			name:       "duty zero write fails",
			setup:      func(p *fakePWM) { p.duty.failAt = 1 },
			runClosed:  true,
			dutyClosed: true,
		},
		{
			name:       "run disable write fails",
			setup:      func(p *fakePWM) { p.run.failAt = 1 },
			runClosed:  true,
			dutyClosed: true,
		},
		{
			name:       "run enable write fails",
			setup:      func(p *fakePWM) { p.run.failAt = 2 },
			runClosed:  true,
			dutyClosed: true,
		},
		{
			name:       "short write",
			setup:      func(p *fakePWM) { p.duty.short = true },
			runClosed:  true,
			dutyClosed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwm := newFakePWM()
			tt.setup(pwm)
			c := NewController(DefaultConfig(), pwm)

			if c.Init() {
				t.Fatal("expected Init to fail")
			}
			if c.Enabled() {
				t.Error("expected controller disabled")
			}
			if pwm.run.closed != tt.runClosed {
				t.Errorf("run closed = %v, want %v", pwm.run.closed, tt.runClosed)
			}
			if pwm.duty.closed != tt.dutyClosed {
				t.Errorf("duty closed = %v, want %v", pwm.duty.closed, tt.dutyClosed)
			}
		})
	}
}

func TestInit_FailureIsPermanent(t *testing.T) {
	pwm := newFakePWM()
	pwm.runErr = os.ErrPermission
	c := NewController(DefaultConfig(), pwm)

	c.Init()
	pwm.runErr = nil
	if c.Init() {
		t.Error("second Init must not recover the controller")
	}
	if pwm.runOpen != 1 {
		t.Errorf("expected one open attempt, got %d", pwm.runOpen)
	}
}

// ============================================================
// Periodic Tests
// ============================================================

func TestPeriodic_DisabledIsNoop(t *testing.T) {
	pwm := newFakePWM()
	pwm.runErr = os.ErrPermission
	c := NewController(DefaultConfig(), pwm)
	c.Init()

	for i := 0; i < 10; i++ {
		c.Periodic(0)
	}

	if len(pwm.duty.writes) != 0 || pwm.duty.attempts != 0 {
		t.Errorf("disabled controller wrote %v", pwm.duty.writes)
	}
	if c.SumError() != 0 {
		t.Errorf("expected sum error 0, got %f", c.SumError())
	}
}

func TestPeriodic_AtTarget(t *testing.T) {
	c, pwm := newEnabled(t)

	c.Periodic(50)

	if got := lastWrite(t, pwm.duty); got != "0" {
		t.Errorf("expected duty 0, got %q", got)
	}
	if c.SumError() != 0 {
		t.Errorf("expected sum error 0, got %f", c.SumError())
	}
}

func TestPeriodic_SaturatesHigh(t *testing.T) {
	c, pwm := newEnabled(t)

	c.Periodic(0)

	if got := lastWrite(t, pwm.duty); got != "125000" {
		t.Errorf("expected duty 125000, got %q", got)
	}
	if c.Output() != DefaultDutyMax {
		t.Errorf("expected output %d, got %d", DefaultDutyMax, c.Output())
	}
}

func TestPeriodic_NegativeClampsToZero(t *testing.T) {
	c, pwm := newEnabled(t)

	c.Periodic(100)

	if got := lastWrite(t, pwm.duty); got != "0" {
		t.Errorf("expected duty 0, got %q", got)
	}
	if c.SumError() != -50 {
		t.Errorf("expected sum error -50, got %f", c.SumError())
	}
}

func TestPeriodic_Truncates(t *testing.T) {
	c, pwm := newEnabled(t)

	// 20000*0.01 + 6*0.01 is just over 200
	c.Periodic(49.99)

	if got := lastWrite(t, pwm.duty); got != "200" {
		t.Errorf("expected duty 200, got %q", got)
	}
}

func TestPeriodic_AntiWindup(t *testing.T) {
	c, _ := newEnabled(t)

	for i := 0; i < 1000; i++ {
		c.Periodic(0)
	}

	// 20800*6 < 125000 admits one more step, 20850*6 does not
	if c.SumError() != 20850 {
		t.Fatalf("expected sum error to freeze at 20850, got %f", c.SumError())
	}

	c.Periodic(0)
	if c.SumError() != 20850 {
		t.Errorf("sum error moved after freeze: %f", c.SumError())
	}

	// frozen in both directions while the magnitude is past the limit
	c.Periodic(100)
	if c.SumError() != 20850 {
		t.Errorf("sum error moved on opposite error: %f", c.SumError())
	}
}

func TestPeriodic_IntegralBuilds(t *testing.T) {
	c, pwm := newEnabled(t)

	c.Periodic(49)
	c.Periodic(49)
	c.Periodic(49)

	if c.SumError() != 3 {
		t.Errorf("expected sum error 3, got %f", c.SumError())
	}
	// 20000*1 + 6*3
	if got := lastWrite(t, pwm.duty); got != "20018" {
		t.Errorf("expected duty 20018, got %q", got)
	}
}

func TestPeriodic_WriteFailureKeepsRunning(t *testing.T) {
	c, pwm := newEnabled(t)
	pwm.duty.failAll = true

	c.Periodic(0)
	c.Periodic(0)
	c.Periodic(0)

	if !c.Enabled() {
		t.Error("write failures must not disable the controller")
	}
	// one init write plus three ticks
	if pwm.duty.attempts != 4 {
		t.Errorf("expected 4 write attempts, got %d", pwm.duty.attempts)
	}
}

func TestPeriodic_IgnoresNaN(t *testing.T) {
	c, pwm := newEnabled(t)
	c.Periodic(float32(math.NaN()))

	if len(pwm.duty.writes) != 0 {
		t.Errorf("expected no writes, got %v", pwm.duty.writes)
	}
	if c.SumError() != 0 {
		t.Errorf("expected sum error 0, got %f", c.SumError())
	}
}

func TestPeriodic_NaNKeepsDuty(t *testing.T) {
	c, pwm := newEnabled(t)
	c.Periodic(0)
	output := c.Output()

	c.Periodic(float32(math.NaN()))

	if len(pwm.duty.writes) != 1 {
		t.Errorf("expected 1 duty write, got %v", pwm.duty.writes)
	}
	if c.Output() != output {
		t.Errorf("expected output %d kept, got %d", output, c.Output())
	}
}

// ============================================================
// Status Tests
// ============================================================

func TestStatus_CountsNaNTicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusEvery = 2
	c := NewController(cfg, newFakePWM())
	c.Init()
	status := &recordingStatus{}
	c.SetStatusSink(status)

	nan := float32(math.NaN())
	c.Periodic(nan)
	c.Periodic(nan)

	if len(status.reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(status.reports))
	}
	if !math.IsNaN(float64(status.reports[0].temp)) {
		t.Errorf("expected NaN temperature, got %f", status.reports[0].temp)
	}
	if status.reports[0].duty != 0 {
		t.Errorf("expected 0%% duty, got %d", status.reports[0].duty)
	}
}

func TestStatus_Prescaler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusEvery = 2
	pwm := newFakePWM()
	c := NewController(cfg, pwm)
	c.Init()
	status := &recordingStatus{}
	c.SetStatusSink(status)

	for i := 0; i < 5; i++ {
		c.Periodic(0)
	}

	if len(status.reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(status.reports))
	}
	if status.reports[0].duty != 100 {
		t.Errorf("expected 100%% duty, got %d", status.reports[0].duty)
	}
	if status.reports[0].temp != 0 {
		t.Errorf("expected temp 0, got %f", status.reports[0].temp)
	}
}

func TestStatus_SentWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusEvery = 1
	pwm := newFakePWM()
	pwm.runErr = os.ErrPermission
	c := NewController(cfg, pwm)
	c.Init()
	status := &recordingStatus{}
	c.SetStatusSink(status)

	c.Periodic(42)

	if len(status.reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(status.reports))
	}
	if status.reports[0].duty != 0 || status.reports[0].temp != 42 {
		t.Errorf("unexpected report %+v", status.reports[0])
	}
}

func TestDutyPercent(t *testing.T) {
	tests := []struct {
		output, max uint32
		want        uint16
	}{
		{0, 125000, 0},
		{125000, 125000, 100},
		{62500, 125000, 50},
		{1249, 125000, 0},
		{1250, 125000, 1},
		{10, 50, 0},
	}
	for _, tt := range tests {
		if got := DutyPercent(tt.output, tt.max); got != tt.want {
			t.Errorf("DutyPercent(%d, %d) = %d, want %d", tt.output, tt.max, got, tt.want)
		}
	}
}

// ============================================================
// Close Tests
// ============================================================

func TestClose(t *testing.T) {
	c, pwm := newEnabled(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := lastWrite(t, pwm.duty); got != "0" {
		t.Errorf("expected duty 0 on close, got %q", got)
	}
	if got := lastWrite(t, pwm.run); got != "0" {
		t.Errorf("expected run 0 on close, got %q", got)
	}
	if !pwm.run.closed || !pwm.duty.closed {
		t.Error("expected both handles closed")
	}
	if c.Enabled() {
		t.Error("expected controller disabled after close")
	}
}

func TestClose_RunWriteError(t *testing.T) {
	c, pwm := newEnabled(t)
	pwm.run.failAll = true

	if err := c.Close(); err == nil {
		t.Error("expected error when run cannot be stopped")
	}
	if !pwm.run.closed || !pwm.duty.closed {
		t.Error("expected both handles closed")
	}
}

func TestClose_Disabled(t *testing.T) {
	c := NewController(DefaultConfig(), newFakePWM())
	if err := c.Close(); err != nil {
		t.Errorf("Close on disabled controller: %v", err)
	}
}

// ============================================================
// Sysfs Tests
// ============================================================

func TestSysfsPWM(t *testing.T) {
	dir := t.TempDir()
	c := NewController(DefaultConfig(), SysfsPWM{Dir: dir})

	if !c.Init() {
		t.Fatal("Init failed")
	}
	c.Periodic(0)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	run, err := os.ReadFile(filepath.Join(dir, "run"))
	if err != nil {
		t.Fatal(err)
	}
	if string(run) != "010" {
		t.Errorf("expected run file %q, got %q", "010", run)
	}

	duty, err := os.ReadFile(filepath.Join(dir, "duty_ns"))
	if err != nil {
		t.Fatal(err)
	}
	if string(duty) != "01250000" {
		t.Errorf("expected duty file %q, got %q", "01250000", duty)
	}
}

func TestSysfsPWM_MissingDir(t *testing.T) {
	c := NewController(DefaultConfig(), SysfsPWM{Dir: filepath.Join(t.TempDir(), "missing")})
	if c.Init() {
		t.Error("expected Init to fail for a missing channel")
	}
}

func TestThermalZone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	if err := os.WriteFile(path, []byte("48500\n"), 0644); err != nil {
		t.Fatal(err)
	}

	temp, err := ThermalZone{Path: path}.Temperature()
	if err != nil {
		t.Fatalf("Temperature: %v", err)
	}
	if temp != 48.5 {
		t.Errorf("expected 48.5, got %f", temp)
	}
}

func TestThermalZone_BadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	if err := os.WriteFile(path, []byte("hot"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := (ThermalZone{Path: path}).Temperature(); err == nil {
		t.Error("expected parse error")
	}
}
