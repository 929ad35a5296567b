// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/dbusbridge/pkg/dbus"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for anomalies, false for information
}

// Header activity seen on the bus
type headerActivity struct {
	header   byte
	count    uint64
	lastHex  string
	lastSeen time.Time
}

// TUI model
type model struct {
	connInfo      string
	showAll       bool
	stats         dbus.Statistics
	prevCounters  dbus.Counters
	eventLog      []eventLogEntry
	maxLogEntries int
	headers       map[byte]*headerActivity
	synchronized  bool
	sourceDone    bool
	spinner       spinner.Model
	width         int
	height        int
	quitting      bool
}

// Messages
type frameMsg struct {
	frame dbus.Frame
}
type statsMsg struct {
	stats dbus.Statistics
}
type sourceDoneMsg struct {
	err error
}

func initialModel(connInfo string, showAll bool) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return model{
		connInfo:      connInfo,
		showAll:       showAll,
		stats:         *dbus.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		headers:       make(map[byte]*headerActivity),
		spinner:       sp,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		if m.synchronized {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statsMsg:
		for _, e := range counterEvents(m.prevCounters, msg.stats.Decoder) {
			m.addLogEntry(e, true)
		}
		m.prevCounters = msg.stats.Decoder
		m.stats = msg.stats

	case frameMsg:
		if !m.synchronized {
			m.synchronized = true
			m.addLogEntry(fmt.Sprintf("First frame: %s", msg.frame.Hex()), false)
		}
		m.recordHeader(msg.frame)
		if m.showAll {
			m.addLogEntry(strings.TrimSpace(dbus.FormatFrame(msg.frame)), false)
		}

	case sourceDoneMsg:
		m.sourceDone = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Source stopped: %v", msg.err), true)
		} else {
			m.addLogEntry("Source closed", false)
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m *model) recordHeader(f dbus.Frame) {
	h, ok := m.headers[f.Header()]
	if !ok {
		h = &headerActivity{header: f.Header()}
		m.headers[f.Header()] = h
	}
	h.count++
	h.lastHex = f.Hex()
	h.lastSeen = time.Now()
}

// sortedHeaders returns the header activity ordered by header byte
func (m model) sortedHeaders() []*headerActivity {
	out := make([]*headerActivity, 0, len(m.headers))
	for b := 0; b <= 0xFF; b++ {
		if h, ok := m.headers[byte(b)]; ok {
			out = append(out, h)
		}
	}
	return out
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("DBUSBRIDGE - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Press 'q' to quit",
		m.connInfo, func() string {
			if m.showAll {
				return "All frames"
			}
			return "Anomalies only"
		}())))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.sourceDone:
		s.WriteString(errorStyle.Render("✗ Source closed"))
	case !m.synchronized:
		s.WriteString(m.spinner.View())
		s.WriteString(warningStyle.Render(" Waiting for the first frame..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Receiving frames"))
	}
	s.WriteString("\n\n")

	// Statistics
	c := m.stats.Decoder
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Bytes:"), statsValueStyle.Render(fmt.Sprintf("%d", c.BytesReceived)),
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d", c.Frames)),
		statsLabelStyle.Render("Acked:"), statsValueStyle.Render(fmt.Sprintf("%d", c.AckBytes)),
	))

	if c.BytesDropped > 0 || c.TimeoutResets > 0 || c.Truncations > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Dropped:"), errorStyle.Render(fmt.Sprintf("%d", c.BytesDropped)),
			statsLabelStyle.Render("Timeouts:"), warningStyle.Render(fmt.Sprintf("%d", c.TimeoutResets)),
			statsLabelStyle.Render("Truncations:"), warningStyle.Render(fmt.Sprintf("%d", c.Truncations)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Byte Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f B/s", m.stats.ByteRate)),
		statsLabelStyle.Render("Yield:"), statsValueStyle.Render(fmt.Sprintf("%.1f%%", m.stats.FrameYield())),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Header activity (only shown once frames arrived)
	if len(m.headers) > 0 {
		s.WriteString(statsLabelStyle.Render("Headers:"))
		s.WriteString("\n")

		headerContent := strings.Builder{}
		for _, h := range m.sortedHeaders() {
			headerContent.WriteString(fmt.Sprintf("%s %s  %s\n",
				statsLabelStyle.Render(fmt.Sprintf("0x%02X", h.header)),
				statsValueStyle.Render(fmt.Sprintf("%6d", h.count)),
				headerStyle.Render(h.lastHex),
			))
		}

		s.WriteString(boxStyle.Render(strings.TrimSuffix(headerContent.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 15 - len(m.headers)
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
