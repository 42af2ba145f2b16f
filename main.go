// frontdesk - Local operator console for an AI receptionist.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/jeranaias/frontdesk/internal/chat"
	"github.com/jeranaias/frontdesk/internal/cli"
	"github.com/jeranaias/frontdesk/internal/config"
	"github.com/jeranaias/frontdesk/internal/logging"
	"github.com/jeranaias/frontdesk/internal/store"
	"github.com/jeranaias/frontdesk/internal/webhook"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	// A local .env can carry FRONTDESK_* overrides; absence is fine.
	_ = godotenv.Load()

	cmd, args, parseErr := cli.ParseArgs(os.Args[1:])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if args.Verbose {
		level = logging.ParseLevel("debug")
	}
	logPath, err := cfg.LogFilePath()
	if err != nil {
		logPath = ""
	}
	logger, closeLog := logging.Setup(logPath, level)
	defer closeLog()

	dataFile, err := cfg.DataFilePath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	sessions := store.NewSessionStore(store.NewFileAdapter(dataFile), logger)

	client := webhook.NewClient(cfg.Webhook.URL).
		WithMaxRetries(cfg.Webhook.MaxRetries).
		WithRateLimit(cfg.Webhook.RateLimit).
		WithLogger(logger)

	orch := chat.New(sessions, client, logger).
		WithTimeout(time.Duration(cfg.Webhook.TimeoutSecs) * time.Second)

	app := &cli.App{
		Config: cfg,
		Store:  sessions,
		Orch:   orch,
		Logger: logger,
	}

	// Pick up config edits while the chat session is open.
	if path, err := config.Path(); err == nil {
		if w, err := config.NewWatcher(path, logger, func(next *config.Config) {
			app.Config = next
		}); err == nil {
			if err := w.Watch(); err == nil {
				defer w.Close()
			}
		}
	}

	if parseErr != nil {
		fmt.Fprintln(os.Stderr, "Error:", parseErr)
		app.Run(cli.CmdHelp, args)
		return 1
	}
	return app.Run(cmd, args)
}
