package ui

import (
	"fmt"

	"github.com/pterm/pterm"
)

// PrintBanner writes the logo and the authorized-use notice. It goes to
// stderr so the transcript on stdout stays clean.
func PrintBanner(version string) {
	logo := `
   ________               __  ____             __
  / ____/ /_  ____  _____/ /_/ __ \_________  / /_  ___
 / / __/ __ \/ __ \/ ___/ __/ /_/ / ___/ __ \/ __ \/ _ \
/ /_/ / / / / /_/ (__  ) /_/ ____/ /  / /_/ / /_/ /  __/
\____/_/ /_/\____/____/\__/_/   /_/   \____/_.___/\___/
`
	fmt.Fprintln(stderr, pterm.FgRed.Sprint(logo))
	fmt.Fprintln(stderr, pterm.DefaultCenter.Sprint(pterm.FgGray.Sprint(version+" - Console Browser Capability Probe")))

	box := pterm.DefaultBox.
		WithTitle(pterm.FgYellow.Sprint("⚠️  WARNING: AUTHORIZED USE ONLY ⚠️")).
		WithTitleBottomCenter().
		WithRightPadding(2).
		WithLeftPadding(2).
		Sprint("This tool is designed for research on devices YOU OWN.\nProbing or delivering payloads to devices you do not own is illegal.")
	fmt.Fprintln(stderr, box)
	fmt.Fprintln(stderr)
}
