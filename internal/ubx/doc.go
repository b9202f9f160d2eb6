// Package ubx decodes the u-blox UBX binary protocol from an unreliable,
// non-blocking byte source.
//
// The pipeline is:
//
//	Port (non-blocking ReadByte) -> SerialInterface.Fill -> ring buffer
//	  -> frame scanner (sync, header, body) -> checksum -> record decode
//	  -> Driver cache (one take-once slot per record type)
//
// A Driver is not safe for concurrent use. It is meant to be polled from a
// single control loop: call HandleAllMessages once per tick and then take
// whatever records became available.
//
// Wire format of one frame:
//
//	0xB5 0x62 | class | id | len lo | len hi | payload[len] | CK_A | CK_B
//
// The checksum covers class, id, both length bytes and the payload.
package ubx
