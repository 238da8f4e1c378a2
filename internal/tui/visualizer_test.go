// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeBuffers struct {
	freq   []byte
	wave   []byte
	active bool
	err    error
}

func (f *fakeBuffers) FrequencyData() []byte  { return f.freq }
func (f *fakeBuffers) TimeDomainData() []byte { return f.wave }
func (f *fakeBuffers) Active() bool           { return f.active }
func (f *fakeBuffers) Err() error             { return f.err }

func sizedModel(buffers Buffers) Model {
	m := NewModel(buffers)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	return updated.(Model)
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := NewModel(&fakeBuffers{})
	if !strings.Contains(m.View(), "starting") {
		t.Error("expected startup placeholder before the first WindowSizeMsg")
	}
}

func TestViewShowsErrorState(t *testing.T) {
	m := sizedModel(&fakeBuffers{err: errors.New("microphone permission denied")})
	if !strings.Contains(m.View(), "microphone permission denied") {
		t.Error("error state not rendered")
	}
}

func TestViewShowsWaitingState(t *testing.T) {
	m := sizedModel(&fakeBuffers{active: false})
	if !strings.Contains(m.View(), "waiting") {
		t.Error("inactive pipeline not rendered as waiting")
	}
}

func TestViewRendersSpectrumBars(t *testing.T) {
	freq := make([]byte, 1024)
	for i := range freq {
		freq[i] = 200
	}
	m := sizedModel(&fakeBuffers{active: true, freq: freq, wave: make([]byte, 2048)})

	view := m.View()
	if !strings.Contains(view, "live") {
		t.Error("active pipeline not rendered as live")
	}
	if !strings.ContainsRune(view, '█') {
		t.Error("loud spectrum rendered no full bars")
	}
}

func TestModeToggle(t *testing.T) {
	m := sizedModel(&fakeBuffers{active: true, freq: make([]byte, 1024), wave: make([]byte, 2048)})
	if m.mode != Spectrum {
		t.Fatalf("initial mode = %v, want Spectrum", m.mode)
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.mode != Waveform {
		t.Errorf("mode after tab = %v, want Waveform", m.mode)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	m = updated.(Model)
	if m.mode != Spectrum {
		t.Errorf("mode after second toggle = %v, want Spectrum", m.mode)
	}
}

func TestQuitKey(t *testing.T) {
	m := sizedModel(&fakeBuffers{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("q produced %v, want tea.Quit", msg)
	}
}

func TestTickKeepsTicking(t *testing.T) {
	m := sizedModel(&fakeBuffers{})
	_, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Error("tick did not reschedule itself")
	}
}

func TestWaveformRendering(t *testing.T) {
	wave := make([]byte, 2048)
	for i := range wave {
		wave[i] = 128
	}
	m := sizedModel(&fakeBuffers{active: true, freq: make([]byte, 1024), wave: wave})
	m.mode = Waveform

	if !strings.ContainsRune(m.View(), '█') {
		t.Error("waveform rendered no samples")
	}
}
