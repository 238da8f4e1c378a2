// SPDX-License-Identifier: MIT
package build

import "testing"

func TestGetInfoDefaults(t *testing.T) {
	info := GetInfo()
	if info.Name == "" {
		t.Error("build name must never be empty")
	}
	if info.Version == "" {
		t.Error("build version must never be empty")
	}
}
