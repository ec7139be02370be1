// Package testutil holds deterministic fixtures shared by package tests:
// numbered addresses, amount shorthands, a recording event sink, and a
// journal that fails on demand.
package testutil
