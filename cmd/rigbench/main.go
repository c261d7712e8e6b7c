// Package main is the entry point for the rigbench workbench.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/rigbench/internal/app"
	"github.com/Faultbox/rigbench/internal/config"
	"github.com/Faultbox/rigbench/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== rigbench ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	a := app.New(cfg)
	defer a.Close()

	// Positional arguments: optional model URL, optional clip URL.
	if model := flag.Arg(0); model != "" {
		a.Session().LoadModel(model)
	}
	if clip := flag.Arg(1); clip != "" {
		a.Session().LoadClip(clip)
	}

	if err := a.Run(); err != nil {
		logger.Error("workbench error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("workbench closed normally")
}
