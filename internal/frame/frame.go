// internal/frame/frame.go
package frame

import "time"

// Frame is one delimited bus message: the bytes captured between two
// silence gaps. Raw is never mutated after emission.
type Frame struct {
	Raw []byte
	At  time.Time
}

// Request is a frame that passed length and checksum validation.
// Payload is everything between the function code and the checksum.
type Request struct {
	Frame    Frame
	Address  uint8
	Function uint8
	Payload  []byte
}
