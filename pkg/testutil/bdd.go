// Package testutil carries shared test helpers.
package testutil

import "testing"

// Given opens a behaviour block. Given, When, and Then nest plain subtests
// under prefixed names, so journey tests read as scenarios in `go test -v`
// output without a BDD framework dependency.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

// When describes the action under test.
func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

// Then asserts the observable outcome.
func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
