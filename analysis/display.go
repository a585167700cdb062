package analysis

import "strings"

// DefaultLineWidth is the widest line the glasses display renders without
// wrapping mid-word.
const DefaultLineWidth = 40

// FormatDisplay joins suggestion lines into one newline-separated display
// string, truncating each line to width runes with a trailing ellipsis.
// Truncation counts runes, not bytes, so multi-byte scripts keep whole
// characters.
func FormatDisplay(lines []string, width int) string {
	if width <= 0 {
		width = DefaultLineWidth
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > width {
			line = string(runes[:width-1]) + "…"
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
