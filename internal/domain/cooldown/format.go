package cooldown

import (
	"fmt"
	"time"
)

// FormatRemaining renders a wait time the way users see it in replies:
// the two most significant non-zero units, each floored.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)

	switch {
	case hours > 0:
		return fmt.Sprintf("**%d** hours, **%d** minutes left", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("**%d** minutes, **%d** seconds left", minutes, seconds)
	default:
		return fmt.Sprintf("**%d** seconds left", seconds)
	}
}
