package transcript

import (
	"fmt"
	"strings"
	"time"
)

func FormatForPrompt(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Speaker.Role(), t.Text))
	}
	return strings.Join(lines, "\n")
}

// FormatElapsed renders each turn with its offset from start, for terminal export.
func FormatElapsed(turns []Turn, start time.Time) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		elapsed := t.Timestamp.Sub(start)
		if elapsed < 0 || t.Timestamp.IsZero() {
			elapsed = 0
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", formatElapsedHMS(elapsed), t.Speaker.Role(), t.Text))
	}
	return strings.Join(lines, "\n")
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
