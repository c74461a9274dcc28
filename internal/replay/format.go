package replay

import "fmt"

// FormatSeconds renders a second count as MM:SS. Minutes are not wrapped
// at 60, so an hour-long game reads 61:01.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
