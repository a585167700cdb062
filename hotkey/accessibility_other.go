//go:build !darwin

package hotkey

// IsAccessibilityEnabled reports whether global event taps are allowed.
// Only macOS gates them behind a permission.
func IsAccessibilityEnabled(prompt bool) bool {
	return true
}
