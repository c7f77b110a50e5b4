package aio

import "hash/crc32"

// Checksum computes the 32-bit integrity value stored in each payload
// descriptor: CRC-32 with the reflected 0xEDB88320 polynomial, initial
// value all ones and a final inversion. An empty payload checksums to
// zero.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
