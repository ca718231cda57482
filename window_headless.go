//go:build headless

package main

import "github.com/soocke/pixel-aim-go/app"

// Builds tagged headless carry no Tk dependency; -headless is implied.
func desktopWindow() app.WindowFunc { return nil }
