package main

import "testing"

// TestCoverageGaps_IntentionallyUntested documents why cmd/merge has no unit tests.
func TestCoverageGaps_IntentionallyUntested(t *testing.T) {
	t.Skip("main.go only calls merge.Run with fixed paths; merge behavior is tested in internal/merge")
}
