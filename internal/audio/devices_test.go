// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gordonklaus/portaudio"
)

func mockDevices(t *testing.T, devices []*portaudio.DeviceInfo, err error) {
	t.Helper()
	orig := paLibDevicesFunc
	t.Cleanup(func() { paLibDevicesFunc = orig })
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return devices, err
	}
}

func testDeviceSet() []*portaudio.DeviceInfo {
	return []*portaudio.DeviceInfo{
		{Name: "Built-in Microphone", MaxInputChannels: 1, DefaultSampleRate: 44100},
		{Name: "Speakers", MaxInputChannels: 0, MaxOutputChannels: 2, DefaultSampleRate: 48000},
	}
}

func TestHostDevices(t *testing.T) {
	mockDevices(t, testDeviceSet(), nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
		if d.DefaultSampleRate <= 0 {
			t.Errorf("Device %d has invalid sample rate: %f", i, d.DefaultSampleRate)
		}
	}
}

func TestHostDevicesError(t *testing.T) {
	mockDevices(t, nil, fmt.Errorf("mock error"))

	if _, err := HostDevices(); err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestHostDevicesNilSlice(t *testing.T) {
	mockDevices(t, nil, nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected length 0, got %d", len(devices))
	}
}

func TestInputDevice(t *testing.T) {
	mockDevices(t, testDeviceSet(), nil)

	t.Run("Valid input device", func(t *testing.T) {
		dev, err := InputDevice(0)
		if err != nil {
			t.Fatalf("InputDevice(0) error: %v", err)
		}
		if dev.Name != "Built-in Microphone" {
			t.Errorf("unexpected device: %s", dev.Name)
		}
	})

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 10, "invalid device ID"},
		{"Non-input device", 1, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if err == nil {
				t.Fatalf("Expected error for ID %d", tt.id)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestInputDeviceDefault(t *testing.T) {
	orig := paLibDefaultInputDevice
	defer func() { paLibDefaultInputDevice = orig }()

	want := &portaudio.DeviceInfo{Name: "Default Mic", MaxInputChannels: 1}
	paLibDefaultInputDevice = func() (*portaudio.DeviceInfo, error) { return want, nil }
	dev, err := InputDevice(UseDefaultDevice)
	if err != nil {
		t.Fatalf("InputDevice(default): %v", err)
	}
	if dev != want {
		t.Error("default device not returned")
	}

	paLibDefaultInputDevice = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("no default input device")
	}
	if _, err := InputDevice(UseDefaultDevice); err == nil || !strings.Contains(err.Error(), "no default input device") {
		t.Errorf("expected no-default error, got %v", err)
	}
}

func TestInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}
