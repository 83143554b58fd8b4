package main

import (
	"fmt"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func statusLabel(kind statusKind, colorize bool) string {
	var label, color string
	switch kind {
	case statusOK:
		label, color = "OK", ansiGreen
	case statusWarn:
		label, color = "WARN", ansiYellow
	case statusError:
		label, color = "ERROR", ansiRed
	default:
		label = "INFO"
	}
	if colorize && color != "" {
		return fmt.Sprintf("%s%s%s", color, label, ansiReset)
	}
	return label
}
