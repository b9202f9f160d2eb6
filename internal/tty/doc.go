package tty

// Package tty opens u-blox receivers on Linux serial devices and exposes
// them as non-blocking byte sources for the ubx driver.
//
// Reads never wait: an empty device reports ubx.ErrWouldBlock, interrupted
// system calls surface as transient errors, and anything else is fatal.
