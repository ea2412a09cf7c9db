// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/meteostat/pkg/sht"
)

// sensor range shown on the temperature bar
const (
	barMinTempC = -40.0
	barMaxTempC = 125.0
)

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *sht.Statistics
	log           []logEntry
	maxLogEntries int
	synchronized  bool
	invalidBytes  int
	width         int
	height        int
	quitting      bool
	connErr       error
	lost          bool

	latest      sht.Reading
	haveReading bool
	humidityBar progress.Model
	tempBar     progress.Model
}

// Messages
type tickMsg time.Time
type frameMsg frameEvent
type syncMsg struct {
	invalidBytes int
}
type connectionLostMsg struct {
	err error
}

func initialModel(connInfo string, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         sht.NewStatistics(),
		maxLogEntries: 100,
		width:         80,
		height:        24,
		humidityBar:   progress.New(progress.WithScaledGradient("#5A56E0", "#00D7FF"), progress.WithoutPercentage()),
		tempBar:       progress.New(progress.WithScaledGradient("#00AFFF", "#FF5F5F"), progress.WithoutPercentage()),
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := msg.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
		m.humidityBar.Width = barWidth
		m.tempBar.Width = barWidth

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.invalidBytes = msg.invalidBytes
		if msg.invalidBytes > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid frames", msg.invalidBytes), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case frameMsg:
		m.handleFrame(frameEvent(msg))

	case connectionLostMsg:
		m.lost = true
		m.connErr = msg.err
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
		} else {
			m.addLogEntry("Connection closed", true)
		}
	}

	return m, nil
}

func (m *model) handleFrame(ev frameEvent) {
	m.stats.Update(ev.frame, ev.decodeErr, ev.validationErrors)

	if ev.decodeErr != nil {
		m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", ev.decodeErr), true)
		return
	}

	m.latest = ev.frame.Reading()
	m.haveReading = true

	if len(ev.validationErrors) > 0 {
		for _, err := range ev.validationErrors {
			m.addLogEntry(err.Message, true)
		}
	} else if m.showAll {
		m.addLogEntry(fmt.Sprintf("%.2f°C %.2f%%RH (valid)", m.latest.Temperature, m.latest.Humidity), false)
	}
}

func (m *model) addLogEntry(message string, isError bool) {
	m.log = append(m.log, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

// barPercent maps v in [lo, hi] to [0, 1]
func barPercent(v, lo, hi float64) float64 {
	p := (v - lo) / (hi - lo)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statsLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	statsValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle        = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("METEOSTAT - ERROR DETECTION"))
	s.WriteString("\n")
	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'r' reset, 'q' quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	switch {
	case m.lost:
		s.WriteString(errorStyle.Render("✗ Connection lost"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.invalidBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid frames)", m.invalidBytes)))
		}
	}
	s.WriteString("\n\n")

	s.WriteString(boxStyle.Render(m.statsView()))
	s.WriteString("\n\n")

	if m.haveReading {
		s.WriteString(statsLabelStyle.Render("Latest Reading:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(m.readingView()))
		s.WriteString("\n\n")
	}

	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.logView()))

	return s.String()
}

func (m model) statsView() string {
	st := m.stats
	var validPercent, errorPercent float64
	if st.TotalFrames > 0 {
		validPercent = float64(st.ValidFrames) * 100.0 / float64(st.TotalFrames)
		errorPercent = float64(st.Errors()) * 100.0 / float64(st.TotalFrames)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", st.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", st.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", st.Errors(), errorPercent)),
	)

	if st.ChecksumErrors > 0 {
		fmt.Fprintf(&b, "%s %s\n",
			statsLabelStyle.Render("Checksum Errors:"), errorStyle.Render(fmt.Sprintf("%d", st.ChecksumErrors)),
		)
	}

	if st.AnomalousFrames > 0 {
		fmt.Fprintf(&b, "%s %s (%s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", st.AnomalousFrames)),
			headerStyle.Render("tick range"), st.TickRangeErrors,
			headerStyle.Render("temp range"), st.TemperatureRange,
			headerStyle.Render("clamped"), st.HumidityClamped,
		)
	}

	rateStyle := statsValueStyle
	if st.ErrorRate > 0 {
		rateStyle = errorStyle
	}
	fmt.Fprintf(&b, "%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", st.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), rateStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate)),
	)
	return b.String()
}

func (m model) readingView() string {
	r := m.latest
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n",
		statsLabelStyle.Render("Temperature:"),
		m.tempBar.ViewAs(barPercent(float64(r.Temperature), barMinTempC, barMaxTempC)),
		statsValueStyle.Render(fmt.Sprintf("%7.2f°C", r.Temperature)),
	)
	fmt.Fprintf(&b, "%s %s %s\n",
		statsLabelStyle.Render("Humidity:   "),
		m.humidityBar.ViewAs(barPercent(float64(r.Humidity), 0, 100)),
		statsValueStyle.Render(fmt.Sprintf("%7.2f%%RH", r.Humidity)),
	)
	fmt.Fprintf(&b, "%s temp=%d hum=%d",
		headerStyle.Render("Ticks:"), r.TemperatureTicks, r.HumidityTicks)
	return b.String()
}

func (m model) logView() string {
	logHeight := m.height - 20
	if logHeight < 5 {
		logHeight = 5
	}
	if len(m.log) == 0 {
		return headerStyle.Render("  (no events yet)")
	}

	start := len(m.log) - logHeight
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, entry := range m.log[start:] {
		timestamp := headerStyle.Render(entry.timestamp.Format("01/02/06 15:04:05.000"))
		if entry.isError {
			fmt.Fprintf(&b, "%s %s\n", timestamp, errorStyle.Render("✗ "+entry.message))
		} else {
			fmt.Fprintf(&b, "%s %s\n", timestamp, warningStyle.Render("ℹ "+entry.message))
		}
	}
	return b.String()
}
