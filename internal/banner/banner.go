// SPDX-License-Identifier: AGPL-3.0-or-later

// Package banner prints the startup header.
package banner

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4CAF50"))
	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Print writes the launch header for the pipeline. When ugly is set the
// styled output is replaced by a single plain line.
func Print(w io.Writer, pipeline string, ugly bool) {
	if ugly {
		fmt.Fprintf(w, "pigx %s\n", pipeline)
		return
	}
	fmt.Fprintln(w, titleStyle.Render("PiGx "+pipeline))
	fmt.Fprintln(w, noteStyle.Render("pipeline launcher"))
	fmt.Fprintln(w)
}
