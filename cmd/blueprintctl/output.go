package main

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warningColor = color.New(color.FgYellow)
	titleColor   = color.New(color.FgMagenta, color.Bold)
)

func printTitle(format string, args ...any) {
	titleColor.Printf("\n%s\n", fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { successColor.Printf("✓ "+format+"\n", args...) }

func printInfo(format string, args ...any) { infoColor.Printf(format+"\n", args...) }

func printWarning(format string, args ...any) { warningColor.Printf(format+"\n", args...) }

func printError(format string, args ...any) { errorColor.Printf(format+"\n", args...) }
