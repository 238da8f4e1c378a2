// SPDX-License-Identifier: MIT
//
// Package tui renders the live visualization. It is deliberately dumb:
// it only reads the pipeline's analysis buffers on a frame tick and
// paints them; all signal work happens upstream. Swap this package out
// to build a different visualization on the same pipeline.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F56")).
			Bold(true)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

var barGlyphs = []rune(" ▁▂▃▄▅▆▇█")

// Buffers is the read side of the capture pipeline the visualizer
// consumes. The slices are overwritten in place upstream; the view only
// ever reads them.
type Buffers interface {
	FrequencyData() []byte
	TimeDomainData() []byte
	Active() bool
	Err() error
}

// Mode selects what the chart area draws.
type Mode int

const (
	Spectrum Mode = iota
	Waveform
)

func (m Mode) String() string {
	if m == Waveform {
		return "waveform"
	}
	return "spectrum"
}

type keyMap struct {
	Quit key.Binding
	Mode key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Mode: key.NewBinding(key.WithKeys("tab", "m")),
}

type tickMsg time.Time

// 30 fps is plenty for a terminal; the pipeline refreshes at 60.
func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the Bubble Tea model for the visualizer.
type Model struct {
	pipeline Buffers
	mode     Mode
	width    int
	height   int
	ready    bool
}

// NewModel creates a visualizer reading from pipeline.
func NewModel(pipeline Buffers) Model {
	return Model{pipeline: pipeline}
}

// Init starts the frame tick.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input and frame ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tickMsg:
		// Nothing to update: View reads the buffers directly. The tick
		// just forces a repaint.
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Mode):
			if m.mode == Spectrum {
				m.mode = Waveform
			} else {
				m.mode = Spectrum
			}
		}
	}
	return m, nil
}

// View renders the header, the chart, and the key help.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("micviz"))
	b.WriteString("  ")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	chartHeight := m.height - 5
	if chartHeight < 1 {
		chartHeight = 1
	}
	switch m.mode {
	case Waveform:
		b.WriteString(m.renderWaveform(m.width, chartHeight))
	default:
		b.WriteString(m.renderSpectrum(m.width, chartHeight))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("tab: %s • q: quit", nextMode(m.mode))))
	return b.String()
}

func (m Model) statusLine() string {
	if err := m.pipeline.Err(); err != nil {
		return errorStyle.Render(fmt.Sprintf("error: %v", err))
	}
	if !m.pipeline.Active() {
		return statusStyle.Render("waiting for microphone...")
	}
	return statusStyle.Render("live: " + m.mode.String())
}

func nextMode(m Mode) Mode {
	if m == Spectrum {
		return Waveform
	}
	return Spectrum
}

// renderSpectrum draws one bar column per terminal column, averaging
// the bins that fall into it. Only the lower half of the spectrum is
// shown; the top octaves are rarely interesting for voice or music.
func (m Model) renderSpectrum(width, height int) string {
	freq := m.pipeline.FrequencyData()
	if len(freq) == 0 || width < 1 {
		return strings.Repeat("\n", height)
	}

	usable := len(freq) / 2
	if usable < width {
		usable = len(freq)
	}

	columns := make([]int, width)
	binsPerCol := float64(usable) / float64(width)
	for col := 0; col < width; col++ {
		lo := int(float64(col) * binsPerCol)
		hi := int(float64(col+1) * binsPerCol)
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(freq) {
			hi = len(freq)
		}
		sum := 0
		for _, v := range freq[lo:hi] {
			sum += int(v)
		}
		avg := sum / (hi - lo)
		columns[col] = avg * height * len(barGlyphs) / 256
	}

	var rows []string
	for row := height; row > 0; row-- {
		var line strings.Builder
		for _, c := range columns {
			level := c - (row-1)*len(barGlyphs)
			switch {
			case level <= 0:
				line.WriteRune(' ')
			case level >= len(barGlyphs):
				line.WriteRune(barGlyphs[len(barGlyphs)-1])
			default:
				line.WriteRune(barGlyphs[level])
			}
		}
		rows = append(rows, barStyle.Render(line.String()))
	}
	return strings.Join(rows, "\n")
}

// renderWaveform plots the time-domain buffer, one sample column per
// terminal column, 128 on the center line.
func (m Model) renderWaveform(width, height int) string {
	wave := m.pipeline.TimeDomainData()
	if len(wave) == 0 || width < 1 || height < 1 {
		return strings.Repeat("\n", height)
	}

	positions := make([]int, width)
	step := float64(len(wave)) / float64(width)
	for col := 0; col < width; col++ {
		sample := wave[int(float64(col)*step)]
		// 0..255 maps to bottom..top row.
		positions[col] = int(sample) * (height - 1) / 255
	}

	var rows []string
	for row := height - 1; row >= 0; row-- {
		var line strings.Builder
		for _, pos := range positions {
			if pos == row {
				line.WriteRune('█')
			} else if row == (height-1)/2 {
				line.WriteRune('·')
			} else {
				line.WriteRune(' ')
			}
		}
		rows = append(rows, barStyle.Render(line.String()))
	}
	return strings.Join(rows, "\n")
}
