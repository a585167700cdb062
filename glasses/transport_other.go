//go:build !darwin

package glasses

// NewPlatformTransport returns ErrTransportUnavailable on platforms without
// a BLE backend. The Emulator remains available everywhere.
func NewPlatformTransport() (Transport, error) {
	return nil, ErrTransportUnavailable
}
