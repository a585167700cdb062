// Package glasses bridges the dual-link wireless glasses to the rest of
// the app: it groups advertisements into left/right pairs, drives the
// connect lifecycle of both links as one logical session, keeps the link
// alive, and relays microphone audio to a transcription capability.
package glasses

import (
	"context"
	"errors"
)

// Transport errors.
var (
	ErrTransportUnavailable = errors.New("glasses: ble transport unavailable on this platform")
	ErrNotConnected         = errors.New("glasses: not connected")
)

// Advertisement is a discovered peripheral advertisement.
type Advertisement struct {
	Name string `json:"name"`
	ID   string `json:"id"` // stable identity used for Connect
	RSSI int    `json:"rssi,omitempty"`
}

// Transport abstracts the BLE central primitives the session consumes:
// scan, connect, service/characteristic discovery, notification
// subscription, and write-without-response. Implementations: the platform
// backend and the in-memory Emulator.
type Transport interface {
	// Scan streams advertisements to found until ctx is done.
	Scan(ctx context.Context, found func(Advertisement)) error

	// Connect establishes a link to the peripheral with the given stable
	// identity. The returned link is connected but not yet discovered.
	Connect(ctx context.Context, id string) (Link, error)
}

// Link is one side's established connection.
type Link interface {
	// Discover performs service and characteristic discovery.
	Discover(ctx context.Context) error

	// Subscribe enables notifications on the inbound characteristic.
	// notify receives raw frame bytes; onDown fires once when the link
	// drops for any reason.
	Subscribe(notify func(data []byte), onDown func(err error)) error

	// Write performs a write-without-response on the command
	// characteristic.
	Write(data []byte) error

	Close() error
}
