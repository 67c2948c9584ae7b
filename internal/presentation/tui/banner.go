package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`                 _                 _     _      `,
	`  __ _ _ __ ___| |__   __ _ _   _(_) __| | ___ `,
	` / _' | '__/ __| '_ \ / _' | | | | |/ _' |/ _ \`,
	`| (_| | | | (__| | | | (_| | |_| | | (_| |  __/`,
	` \__,_|_|  \___|_| |_|\__, |\__,_|_|\__,_|\___|`,
	`                      |___/                    `,
}

// Gradient from indigo to rose, one stop per banner line.
var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6", "#fb7185"}

// PrintBanner writes the archguide banner and the version line to w.
// Colors follow the profile of w; a plain writer gets plain text.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(p.Color(bannerColors[i])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  architecture design assistant v"+v).Faint())
	}
	fmt.Fprintln(w)
}
