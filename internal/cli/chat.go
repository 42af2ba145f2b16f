// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat session for frontdesk.
package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/frontdesk/internal/config"
	"github.com/jeranaias/frontdesk/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.Dir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Supports history
// navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// INTERACTIVE LOOP
// =============================================================================

func (a *App) runChat(args Args) error {
	input := NewChatCLI()
	defer input.Close()

	if !args.Quiet {
		a.printWelcome()
	}

	for {
		line, err := input.ReadInput("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println(DimStyle.Render("(ctrl-c again or /quit to exit)"))
				continue
			}
			// EOF or a closed terminal ends the session.
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := a.handleSlashCommand(line)
			if err != nil {
				fmt.Println(ErrorStyle.Render("Error: ") + err.Error())
			}
			if quit {
				return nil
			}
			continue
		}

		a.sendAndPrint(line)
	}
}

// sendAndPrint runs one send, allowing Ctrl-C to cancel it mid-flight.
func (a *App) sendAndPrint(content string) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Orch.SendMessage(content, "")
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	select {
	case <-done:
	case <-sig:
		a.Orch.CancelRequest()
		<-done
		fmt.Println(WarningStyle.Render("Request cancelled."))
		return
	}

	a.printLastReply()
}

func (a *App) printLastReply() {
	chatID := a.Store.CurrentChatID()
	last := a.Store.LastMessageByRole(chatID, model.RoleAssistant)
	if last == nil {
		return
	}
	switch {
	case last.IsPending():
		// Cancelled before a reply arrived.
		fmt.Println(DimStyle.Render("(no reply)"))
	case last.Status == model.StatusFailed:
		fmt.Println(AssistantStyle.Render("assistant> ") + ErrorStyle.Render(last.Content))
		if detail := a.Orch.LastError(); detail != "" {
			fmt.Println(DimStyle.Render("  " + detail))
		}
	default:
		fmt.Println(AssistantStyle.Render("assistant> ") + last.Content)
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand executes a /command. Returns true when the session
// should end.
func (a *App) handleSlashCommand(line string) (bool, error) {
	parts := strings.Fields(line)
	cmd := parts[0]
	rest := parts[1:]

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		a.printChatHelp()
		return false, nil

	case "/new":
		id := a.Store.CreateChat("")
		fmt.Println(SuccessStyle.Render("Started a new chat.") + DimStyle.Render(" ("+id+")"))
		return false, nil

	case "/list":
		a.printChatList(a.Store.Chats())
		return false, nil

	case "/switch":
		if len(rest) != 1 {
			return false, fmt.Errorf("usage: /switch N")
		}
		return false, a.switchChat(rest[0])

	case "/delete":
		current := a.Store.CurrentChatID()
		if current == "" {
			return false, fmt.Errorf("no chat selected")
		}
		a.Store.DeleteChat(current)
		fmt.Println(SuccessStyle.Render("Chat deleted."))
		if next := a.Store.CurrentChatID(); next != "" {
			a.printTranscript(next)
		}
		return false, nil

	case "/regen":
		a.Orch.RegenerateLastResponse()
		a.printLastReply()
		return false, nil

	case "/cancel":
		a.Orch.CancelRequest()
		fmt.Println(WarningStyle.Render("Request cancelled."))
		return false, nil

	case "/clear":
		a.Store.ClearAllChats()
		fmt.Println(SuccessStyle.Render("All chats deleted."))
		return false, nil

	case "/export":
		format := "md"
		if len(rest) > 0 {
			format = rest[0]
		}
		current := a.Store.CurrentChatID()
		if current == "" {
			return false, fmt.Errorf("no chat selected")
		}
		return false, a.exportChat(current, format, "")

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func (a *App) switchChat(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return fmt.Errorf("/switch needs a chat number from /list")
	}
	chats := a.Store.Chats()
	if n > len(chats) {
		return fmt.Errorf("no chat %d, only %d available", n, len(chats))
	}
	target := chats[n-1]
	a.Store.SetCurrentChat(target.ID)
	a.printTranscript(target.ID)
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (a *App) printWelcome() {
	fmt.Println(TitleStyle.Render("frontdesk " + Version))
	if a.Config.Webhook.URL == "" {
		fmt.Println(WarningStyle.Render("No webhook endpoint configured.") +
			DimStyle.Render(" Set webhook.url in config or FRONTDESK_WEBHOOK_URL."))
	}
	if current := a.Store.CurrentChatID(); current != "" {
		a.printTranscript(current)
	} else {
		fmt.Println(DimStyle.Render("Type a message to start, or /help for commands."))
	}
}

func (a *App) printChatHelp() {
	fmt.Println(TitleStyle.Render("Chat commands"))
	fmt.Println("  /new              Start a new chat")
	fmt.Println("  /list             List chats")
	fmt.Println("  /switch N         Switch to chat number N")
	fmt.Println("  /delete           Delete the current chat")
	fmt.Println("  /regen            Regenerate the last reply")
	fmt.Println("  /cancel           Cancel the in-flight request")
	fmt.Println("  /clear            Delete all chats")
	fmt.Println("  /export [md|json] Export the current chat")
	fmt.Println("  /quit             Exit")
}

func (a *App) printChatList(chats []*model.Chat) {
	if len(chats) == 0 {
		fmt.Println(DimStyle.Render("No chats yet."))
		return
	}
	current := a.Store.CurrentChatID()
	for i, c := range chats {
		marker := "  "
		if c.ID == current {
			marker = SuccessStyle.Render("* ")
		}
		count := a.Store.MessageCount(c.ID)
		fmt.Printf("%s%2d. %s %s\n", marker, i+1, c.Title,
			DimStyle.Render(fmt.Sprintf("(%d messages, %s)", count, c.UpdatedAt.Format("2006-01-02 15:04"))))
	}
}

func (a *App) printTranscript(chatID string) {
	chat := a.Store.ChatByID(chatID)
	if chat == nil {
		return
	}
	fmt.Println(TitleStyle.Render(chat.Title))
	for _, m := range a.Store.Messages(chatID) {
		prefix := UserStyle.Render("you> ")
		if m.Role == model.RoleAssistant {
			prefix = AssistantStyle.Render("assistant> ")
		}
		content := m.Content
		if m.IsPending() {
			content = DimStyle.Render("(no reply)")
		}
		if a.Config.UI.Timestamps {
			prefix = DimStyle.Render(m.CreatedAt.Format("15:04")+" ") + prefix
		}
		fmt.Println(prefix + content)
	}
}
