//go:build darwin

package glasses

/*
#cgo CFLAGS: -x objective-c -fobjc-arc -mmacosx-version-min=13.0
#cgo LDFLAGS: -framework CoreBluetooth -framework Foundation

#include <stdlib.h>
#include <stdint.h>

extern int  glintBLEStartScan(char** errOut);
extern void glintBLEStopScan(void);
extern int  glintBLEConnect(const char* uuid, char** errOut);
extern int  glintBLEDiscover(int handle, char** errOut);
extern int  glintBLESubscribe(int handle, char** errOut);
extern int  glintBLEWrite(int handle, const uint8_t* data, int len);
extern void glintBLEDisconnect(int handle);
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// Global tables for CGO callbacks. One central manager per process.
var (
	darwinMu    sync.Mutex
	darwinScan  func(Advertisement)
	darwinLinks = make(map[int]*darwinLink)
)

//export goBLEAdvert
func goBLEAdvert(name, uuid *C.char, rssi C.int) {
	darwinMu.Lock()
	found := darwinScan
	darwinMu.Unlock()
	if found == nil {
		return
	}
	found(Advertisement{
		Name: C.GoString(name),
		ID:   C.GoString(uuid),
		RSSI: int(rssi),
	})
}

//export goBLENotify
func goBLENotify(handle C.int, data *C.uint8_t, length C.int) {
	darwinMu.Lock()
	link := darwinLinks[int(handle)]
	darwinMu.Unlock()
	if link == nil {
		return
	}

	link.mu.Lock()
	notify := link.notify
	link.mu.Unlock()
	if notify == nil {
		return
	}
	// Copy out of C memory before the callback returns.
	frame := C.GoBytes(unsafe.Pointer(data), length)
	notify(frame)
}

//export goBLEDown
func goBLEDown(handle C.int, reason *C.char) {
	darwinMu.Lock()
	link := darwinLinks[int(handle)]
	delete(darwinLinks, int(handle))
	darwinMu.Unlock()
	if link == nil {
		return
	}

	link.mu.Lock()
	onDown := link.onDown
	link.closed = true
	link.mu.Unlock()
	if onDown != nil {
		onDown(errors.New(C.GoString(reason)))
	}
}

// darwinTransport is the CoreBluetooth-backed Transport.
type darwinTransport struct {
	mu       sync.Mutex
	scanning bool
}

// NewPlatformTransport returns the CoreBluetooth transport.
func NewPlatformTransport() (Transport, error) {
	return &darwinTransport{}, nil
}

func (t *darwinTransport) Scan(ctx context.Context, found func(Advertisement)) error {
	t.mu.Lock()
	if t.scanning {
		t.mu.Unlock()
		return errors.New("glasses: scan already in progress")
	}
	t.scanning = true
	t.mu.Unlock()

	darwinMu.Lock()
	darwinScan = found
	darwinMu.Unlock()

	defer func() {
		C.glintBLEStopScan()
		darwinMu.Lock()
		darwinScan = nil
		darwinMu.Unlock()
		t.mu.Lock()
		t.scanning = false
		t.mu.Unlock()
	}()

	var errStr *C.char
	if C.glintBLEStartScan(&errStr) != 0 {
		return cbError("start scan", errStr)
	}

	<-ctx.Done()
	return nil
}

func (t *darwinTransport) Connect(ctx context.Context, id string) (Link, error) {
	cid := C.CString(id)
	defer C.free(unsafe.Pointer(cid))

	var errStr *C.char
	handle := C.glintBLEConnect(cid, &errStr)
	if handle < 0 {
		return nil, cbError("connect", errStr)
	}

	link := &darwinLink{handle: int(handle)}
	darwinMu.Lock()
	darwinLinks[link.handle] = link
	darwinMu.Unlock()
	return link, nil
}

type darwinLink struct {
	handle int

	mu     sync.Mutex
	notify func([]byte)
	onDown func(error)
	closed bool
}

func (l *darwinLink) Discover(ctx context.Context) error {
	var errStr *C.char
	if C.glintBLEDiscover(C.int(l.handle), &errStr) != 0 {
		return cbError("discover", errStr)
	}
	return nil
}

func (l *darwinLink) Subscribe(notify func([]byte), onDown func(error)) error {
	l.mu.Lock()
	l.notify = notify
	l.onDown = onDown
	l.mu.Unlock()

	var errStr *C.char
	if C.glintBLESubscribe(C.int(l.handle), &errStr) != 0 {
		return cbError("subscribe", errStr)
	}
	return nil
}

func (l *darwinLink) Write(data []byte) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return errors.New("glasses: link closed")
	}
	if len(data) == 0 {
		return nil
	}

	if C.glintBLEWrite(C.int(l.handle), (*C.uint8_t)(unsafe.Pointer(&data[0])), C.int(len(data))) != 0 {
		return errors.New("glasses: characteristic write failed")
	}
	return nil
}

func (l *darwinLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	darwinMu.Lock()
	delete(darwinLinks, l.handle)
	darwinMu.Unlock()

	C.glintBLEDisconnect(C.int(l.handle))
	return nil
}

func cbError(op string, errStr *C.char) error {
	if errStr == nil {
		return fmt.Errorf("glasses: %s: unknown corebluetooth error", op)
	}
	err := fmt.Errorf("glasses: %s: %s", op, C.GoString(errStr))
	C.free(unsafe.Pointer(errStr))
	return err
}
