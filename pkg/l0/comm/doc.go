// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between the IO co-processor firmware and the
// flight controller over a peer-to-peer channel (e.g. serial port) and is
// recoverable from transfer errors.
//
// Synchronization is sequence based: both sides exchange sync requests and
// acknowledges carrying the next packet sequence, and any unexpected
// sequence forces a resync.
//
// Packet layout:
//
//	SEQ CODE [LEN] DATA... CRC
//
// CODE bit 7 marks an event, bits 4-6 carry the data length (7 means an
// explicit LEN byte follows), bits 0-3 the code. CRC is CRC-8/SMBUS over
// all preceding bytes of the packet. A CRC mismatch drops the packet and
// resyncs.
//
// Producer: L0 firmware
// Consumer: L1 controller
