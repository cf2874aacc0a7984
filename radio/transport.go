package radio

// Transport is the byte link to a radio. Implementations wrap a serial port
// or, in tests, a scripted device.
//
// ReadAvailable returns whatever bytes are pending without blocking beyond a
// short internal poll; a nil slice with nil error means nothing arrived. The
// session's reader goroutine calls it in a loop, so implementations must not
// spin when idle.
type Transport interface {
	// ReadAvailable returns pending bytes, or (nil, nil) when none
	ReadAvailable() ([]byte, error)

	// Write sends bytes to the device
	Write(p []byte) error

	// Close releases the underlying link
	Close() error
}
