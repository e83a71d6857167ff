package main

import "testing"

func TestClassifyFallsBackToDefaultFormat(t *testing.T) {
	configPath := writeTestConfig(t)

	// The file does not exist, so no media can be analyzed and the
	// configured default format is reported with zero confidence.
	out, _, err := runCLI(t, configPath, "classify", "missing_capture.avi")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	requireContains(t, out, "Detected format: VHS")
	requireContains(t, out, "confidence 0.000")
	requireContains(t, out, "0 file(s) analyzed")
}
