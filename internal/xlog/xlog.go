// Package xlog is the leveled, colorized logging surface shared by the
// engine and the CLI. It wraps hclog (logger name "xtask", hclog's own
// line format) for level filtering and fatih/color for the banners
// around task execution, mirroring the colorama banners of the original
// Python implementation.
package xlog

import (
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
)

// IsTTY reports whether stdout is an interactive terminal.
var IsTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

var bannerCyan = color.New(color.Bold, color.FgCyan)
var bannerGreen = color.New(color.Bold, color.FgGreen)
var bannerRed = color.New(color.Bold, color.FgRed)

// Logger is the engine-wide leveled logger. It is a thin indirection
// over hclog.Logger so callers don't import hclog directly.
type Logger struct {
	hclog.Logger
}

// New builds a Logger at the given level name ("trace", "debug", "info",
// "warn", "error"). An empty or unrecognized name falls back to "info".
func New(levelName string) *Logger {
	level := hclog.LevelFromString(levelName)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return &Logger{hclog.New(&hclog.LoggerOptions{
		Name:            "xtask",
		Level:           level,
		Color:           hclog.AutoColor,
		ColorHeaderOnly: true,
	})}
}

// BeginTask prints the "starting execution" banner for a task label.
func BeginTask(label string) {
	bannerCyan.Println("==================================================")
	bannerCyan.Printf("| Executing %s\n", label)
	bannerCyan.Println("--------------------------------------------------")
}

// EndTaskSuccess prints the success banner for a task label.
func EndTaskSuccess(label string) {
	bannerGreen.Println("--------------------------------------------------")
	bannerGreen.Printf("| Successfully executed %s\n", label)
	bannerGreen.Println("==================================================")
}

// EndTaskFailure prints the failure banner for a task label and error.
func EndTaskFailure(label string, err error) {
	bannerRed.Println("--------------------------------------------------")
	bannerRed.Printf("| Failed to execute %s: %v\n", label, err)
	bannerRed.Println("==================================================")
}
