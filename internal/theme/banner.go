package theme

import (
	"fmt"
	"io"
)

// Banner returns the threshold banner with the given version.
func Banner(version string) string {
	const cyan = "\033[36m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	return "" +
		cyan + "  ┌─────────────────────────────┐\n" + reset +
		cyan + "  │" + reset + "   ◷  " + yellow + "T H R E S H O L D" + reset + "    " + cyan + "│\n" + reset +
		cyan + "  └─────────────────────────────┘\n" + reset +
		"   alarms that wake you inside a window  " + version + "\n"
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, Banner(version))
}
