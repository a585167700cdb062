//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>

static bool glintAXTrusted(bool prompt) {
	CFStringRef keys[] = {kAXTrustedCheckOptionPrompt};
	CFBooleanRef values[] = {prompt ? kCFBooleanTrue : kCFBooleanFalse};
	CFDictionaryRef options = CFDictionaryCreate(
		NULL, (const void **)keys, (const void **)values, 1,
		&kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
	bool trusted = AXIsProcessTrustedWithOptions(options);
	CFRelease(options);
	return trusted;
}
*/
import "C"

// IsAccessibilityEnabled reports whether the process may install global
// event taps. With prompt set, macOS shows the system permission dialog
// on first ask.
func IsAccessibilityEnabled(prompt bool) bool {
	return bool(C.glintAXTrusted(C.bool(prompt)))
}
