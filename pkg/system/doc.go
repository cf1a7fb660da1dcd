// Package system holds small shared helpers that don't belong to a
// domain package, currently test logger construction.
package system
