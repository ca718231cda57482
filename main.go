package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/soocke/pixel-aim-go/app"
)

func main() {
	var opts app.Options
	flag.StringVar(&opts.ConfigPath, "config", "config.json", "path to the JSON config file")
	flag.StringVar(&opts.Listen, "listen", "", "control API address (overrides config)")
	flag.BoolVar(&opts.Headless, "headless", false, "run without the desktop window")
	flag.BoolVar(&opts.Debug, "debug", false, "debug logging and runtime stats")
	flag.StringVar(&opts.ShmName, "shm-name", "", "frame channel name (generated when empty)")
	flag.Parse()

	var level slog.LevelVar
	if opts.Debug {
		level.Set(slog.LevelDebug)
	}
	logger := NewLogger(&level)

	c, err := app.BuildContainer(opts, app.DetectPlatform(logger), logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	if c.Store.Read().Debug {
		level.Set(slog.LevelDebug)
	}
	var win app.WindowFunc
	if !opts.Headless {
		win = desktopWindow()
	}
	if err := app.NewApp(c, win).Run(context.Background()); err != nil {
		os.Exit(1)
	}
}
