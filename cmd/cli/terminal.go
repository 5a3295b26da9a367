package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

type colorMode int

const (
	colorAuto colorMode = iota
	colorAlways
	colorNever
)

func parseColorMode(v string) (colorMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "auto":
		return colorAuto, nil
	case "always":
		return colorAlways, nil
	case "never":
		return colorNever, nil
	default:
		return colorAuto, fmt.Errorf("unknown color mode: %s", v)
	}
}

// colorEnabled resolves the effective mode for out.
// In auto mode TERM=dumb and NO_COLOR win over a terminal check.
func colorEnabled(mode colorMode, out *os.File, getenv func(string) string) bool {
	switch mode {
	case colorAlways:
		return true
	case colorNever:
		return false
	}
	if strings.EqualFold(strings.TrimSpace(getenv("TERM")), "dumb") {
		return false
	}
	if strings.TrimSpace(getenv("NO_COLOR")) != "" {
		return false
	}
	return isTerminal(out)
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the column count of f, 0 when it is not a terminal
func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return 0
	}
	return w
}
