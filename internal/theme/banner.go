package theme

import (
	"fmt"
)

// Banner returns the CLI banner.
func Banner() string {
	const green = "\033[32m"
	const yellow = "\033[33m"
	const magenta = "\033[35m"
	const reset = "\033[0m"

	art := "" +
		"   " + magenta + "FOODTREND" + reset + "  🍜\n" +
		green + "   ▄▀▀▀▄ trending before it's trending ▄▀▀▀▄\n" + reset +
		yellow + "   ─────────────────────────────────────────\n" + reset +
		"   food trend signals from social chatter\n"
	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
