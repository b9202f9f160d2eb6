package gnss

// Package gnss runs a u-blox receiver behind the ubx driver.
//
// A Service owns exactly one driver and touches it from one goroutine only.
// Readers get an immutable Snapshot and, optionally, a callback per poll
// with whatever records were taken.
