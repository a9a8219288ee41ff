package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Version is printed in the banner.
const Version = "v0.1.0"

// PrintBanner displays the startup banner.
func PrintBanner() {
	w := writer()

	cyan := color.New(color.FgCyan, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	magenta := color.New(color.FgMagenta, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	rows := [][2]string{
		{" ██████╗ ██████╗  ██████╗ ██╗  ██╗", "    ██████╗ ██╗██████╗ ███████╗"},
		{"██╔════╝ ██╔══██╗██╔═══██╗██║ ██╔╝", "    ██╔══██╗██║██╔══██╗██╔════╝"},
		{"██║  ███╗██████╔╝██║   ██║█████╔╝ ", "    ██████╔╝██║██████╔╝█████╗  "},
		{"██║   ██║██╔══██╗██║   ██║██╔═██╗ ", "    ██╔═══╝ ██║██╔═══╝ ██╔══╝  "},
		{"╚██████╔╝██║  ██║╚██████╔╝██║  ██╗", "    ██║     ██║██║     ███████╗"},
		{" ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚═╝", "    ╚═╝     ╚═╝╚═╝     ╚══════╝"},
	}

	fmt.Fprintln(w)
	cyan.Fprintln(w, "╔═══════════════════════════════════════════════════════════════════════╗")
	for _, row := range rows {
		cyan.Fprint(w, "║  ")
		hiCyan.Fprint(w, row[0])
		magenta.Fprint(w, row[1])
		cyan.Fprintln(w, "   ║")
	}
	cyan.Fprintln(w, "╠═══════════════════════════════════════════════════════════════════════╣")

	cyan.Fprint(w, "║  ")
	yellow.Fprint(w, "xAI GROK")
	dim.Fprint(w, "  │  ")
	magenta.Fprint(w, "OPENAI-COMPATIBLE PIPE")
	dim.Fprint(w, "  │  ")
	white.Fprint(w, Version)
	dim.Fprint(w, "                        ")
	cyan.Fprintln(w, "║")

	cyan.Fprintln(w, "╚═══════════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
}

// PrintMiniBanner is the one-line banner used by the CLI.
func PrintMiniBanner() {
	w := writer()
	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)

	cyan.Fprint(w, "▌ ")
	magenta.Fprint(w, "GROK PIPE")
	mutedText.Fprintf(w, " %s\n", Version)
}
