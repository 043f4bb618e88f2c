// internal/crc/crc.go
package crc

// Checksum computes the Modbus RTU CRC-16 of b.
// Table-free shift-and-XOR, polynomial 0xA001, seed 0xFFFF.
// Bit-exact with real devices; any deviation breaks interoperability.
func Checksum(b []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, c := range b {
		crc ^= uint16(c)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// Append returns b with its checksum appended low byte first.
func Append(b []byte) []byte {
	sum := Checksum(b)
	return append(b, byte(sum), byte(sum>>8))
}

// Verify reports whether the trailing two bytes of b are the checksum
// of the preceding bytes. Frames shorter than the protocol minimum
// (address + function + checksum = 4 bytes) never verify.
func Verify(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	want := Checksum(b[:len(b)-2])
	got := uint16(b[len(b)-2]) | uint16(b[len(b)-1])<<8
	return want == got
}
