// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Saved chat management and export commands.
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/frontdesk/internal/model"
	"github.com/jeranaias/frontdesk/internal/util"
)

func (a *App) runSessions(args Args) error {
	switch args.Subcommand {
	case "", "list":
		chats := a.Store.Chats()
		if q, ok := args.Options["search"]; ok {
			chats = a.Store.Search(q)
			if len(chats) == 0 {
				fmt.Println(DimStyle.Render("No chats match " + fmt.Sprintf("%q", q) + "."))
				return nil
			}
		}
		a.printSessionsTable(chats)
		return nil

	case "delete", "rm":
		if len(args.Raw) != 1 {
			return fmt.Errorf("usage: frontdesk sessions delete ID")
		}
		id := args.Raw[0]
		if a.Store.ChatByID(id) == nil {
			return fmt.Errorf("no chat with id %s", id)
		}
		a.Store.DeleteChat(id)
		fmt.Println(SuccessStyle.Render("Chat deleted."))
		return nil

	case "clear":
		a.Store.ClearAllChats()
		fmt.Println(SuccessStyle.Render("All chats deleted."))
		return nil

	default:
		return fmt.Errorf("unknown sessions subcommand: %s", args.Subcommand)
	}
}

func (a *App) printSessionsTable(chats []*model.Chat) {
	if len(chats) == 0 {
		fmt.Println(DimStyle.Render("No chats yet."))
		return
	}
	current := a.Store.CurrentChatID()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("Chats (%d)", len(chats))))
	for _, c := range chats {
		marker := "  "
		if c.ID == current {
			marker = SuccessStyle.Render("* ")
		}
		fmt.Printf("%s%-28s %-40s %s\n",
			marker,
			DimStyle.Render(c.ID),
			util.TruncateRunes(c.Title, 38),
			DimStyle.Render(fmt.Sprintf("%3d msgs  %s", a.Store.MessageCount(c.ID), c.UpdatedAt.Format("2006-01-02 15:04"))))
	}
}

// runExport handles `frontdesk export ID [--format md|json] [--out FILE]`.
func (a *App) runExport(args Args) error {
	if args.Subcommand == "" {
		return fmt.Errorf("usage: frontdesk export ID [--format md|json] [--out FILE]")
	}

	format := args.Options["format"]
	if format == "" {
		format = "md"
	}
	return a.exportChat(args.Subcommand, format, args.Options["out"])
}

// exportChat renders a chat in the requested format to stdout or a file.
// Shared by the export command and the /export chat command.
func (a *App) exportChat(chatID, format, outPath string) error {
	if a.Store.ChatByID(chatID) == nil {
		return fmt.Errorf("no chat with id %s", chatID)
	}

	var data []byte
	switch format {
	case "md", "markdown":
		data = []byte(a.Store.ExportMarkdown(chatID))
	case "json":
		var err error
		data, err = a.Store.ExportJSON(chatID)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export format %q (md or json)", format)
	}

	if outPath == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := util.AtomicWriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Println(SuccessStyle.Render("Exported to ") + outPath)
	return nil
}
