//go:build !headless

package main

import (
	"github.com/soocke/pixel-aim-go/app"
	"github.com/soocke/pixel-aim-go/ui/window"
)

func desktopWindow() app.WindowFunc { return window.Run }
