// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for frontdesk.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jeranaias/frontdesk/internal/chat"
	"github.com/jeranaias/frontdesk/internal/config"
	"github.com/jeranaias/frontdesk/internal/store"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdSessions
	CmdExport
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool

	// Command-specific
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string

	// Options holds command-specific named options (e.g., --search, --format)
	Options map[string]string
}

const usageText = `frontdesk - AI receptionist chat console

Frontdesk is the operator console for an AI receptionist. Conversations are
kept locally; replies come from the configured webhook endpoint.

Usage:
  frontdesk                       Start interactive chat (default)
  frontdesk chat                  Interactive chat
  frontdesk sessions              List saved chats
  frontdesk sessions --search q   Search chats by title and content
  frontdesk sessions delete ID    Delete a chat
  frontdesk sessions clear        Delete all chats
  frontdesk export ID             Export a chat transcript
    --format md|json              Output format (default: md)
    --out FILE                    Write to a file instead of stdout
  frontdesk config [show|path]    Show configuration
  frontdesk version               Show version information
  frontdesk help                  Show this help

Chat commands (inside the interactive session):
  /new              Start a new chat
  /list             List chats
  /switch N         Switch to chat number N from /list
  /delete           Delete the current chat
  /regen            Regenerate the last reply
  /cancel           Cancel the in-flight request
  /clear            Delete all chats
  /export [md|json] Export the current chat
  /help             Show chat commands
  /quit             Exit

Environment:
  FRONTDESK_CONFIG           Config file path (default ~/.frontdesk/config.toml)
  FRONTDESK_WEBHOOK_URL      Webhook endpoint override
  FRONTDESK_LOG_LEVEL        debug, info, warn, error
`

// ParseArgs parses command-line arguments into a command and its options.
func ParseArgs(argv []string) (Command, Args, error) {
	args := Args{Options: make(map[string]string)}

	var positional []string
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "-q" || a == "--quiet":
			args.Quiet = true
		case a == "-v" || a == "--verbose":
			args.Verbose = true
		case a == "-h" || a == "--help":
			return CmdHelp, args, nil
		case strings.HasPrefix(a, "--"):
			name := strings.TrimPrefix(a, "--")
			if eq := strings.Index(name, "="); eq >= 0 {
				args.Options[name[:eq]] = name[eq+1:]
				continue
			}
			if i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "-") {
				args.Options[name] = argv[i+1]
				i++
			} else {
				args.Options[name] = "true"
			}
		default:
			positional = append(positional, a)
		}
	}

	if len(positional) == 0 {
		return CmdChat, args, nil
	}

	cmd := positional[0]
	rest := positional[1:]
	if len(rest) > 0 {
		args.Subcommand = rest[0]
		args.Raw = rest[1:]
	}

	switch cmd {
	case "chat":
		return CmdChat, args, nil
	case "sessions", "session", "s":
		return CmdSessions, args, nil
	case "export":
		return CmdExport, args, nil
	case "config":
		return CmdConfig, args, nil
	case "version", "--version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, fmt.Errorf("unknown command: %s", cmd)
	}
}

// =============================================================================
// APP & DISPATCH
// =============================================================================

// App wires the session core into the CLI commands.
type App struct {
	Config *config.Config
	Store  *store.SessionStore
	Orch   *chat.Orchestrator
	Logger *slog.Logger
}

// Run executes the parsed command and returns the process exit code.
func (a *App) Run(cmd Command, args Args) int {
	var err error
	switch cmd {
	case CmdChat:
		err = a.runChat(args)
	case CmdSessions:
		err = a.runSessions(args)
	case CmdExport:
		err = a.runExport(args)
	case CmdConfig:
		err = a.runConfig(args)
	case CmdVersion:
		a.printVersion()
	case CmdHelp:
		fmt.Print(usageText)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		return 1
	}
	return 0
}

func (a *App) printVersion() {
	fmt.Printf("frontdesk %s\n", Version)
	fmt.Printf("  commit: %s\n", GitCommit)
	fmt.Printf("  built:  %s\n", BuildDate)
}

func (a *App) runConfig(args Args) error {
	switch args.Subcommand {
	case "path":
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "", "show":
		fmt.Println(TitleStyle.Render("Configuration"))
		fmt.Println(LabelStyle.Render("Webhook:") + orUnset(a.Config.Webhook.URL))
		fmt.Println(LabelStyle.Render("Timeout:") + fmt.Sprintf("%ds", a.Config.Webhook.TimeoutSecs))
		fmt.Println(LabelStyle.Render("Retries:") + fmt.Sprintf("%d", a.Config.Webhook.MaxRetries))
		fmt.Println(LabelStyle.Render("Log level:") + a.Config.Logging.Level)
		dataFile, err := a.Config.DataFilePath()
		if err == nil {
			fmt.Println(LabelStyle.Render("Data file:") + dataFile)
		}
		return nil
	default:
		return fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
	}
}

func orUnset(s string) string {
	if s == "" {
		return DimStyle.Render("(not configured)")
	}
	return s
}
