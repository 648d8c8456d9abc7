package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Command is a parsed slash command.
type Command struct {
	Name string
	Arg  string
}

const (
	CmdAttach          = "attach"
	CmdClearAttachment = "clear-attachment"
	CmdProactive       = "proactive"
	CmdSummarize       = "summarize"
	CmdWebSearch       = "websearch"
	CmdReminisce       = "reminisce"
	CmdTheme           = "theme"
	CmdCopy            = "copy"
	CmdQuit            = "quit"
	CmdHelp            = "help"
)

var commandHelp = []struct{ name, help string }{
	{CmdAttach, "/attach <path>     attach an image to the next message"},
	{CmdClearAttachment, "/clear-attachment  drop the pending image"},
	{CmdProactive, "/proactive         let the assistant speak first"},
	{CmdSummarize, "/summarize         compact the conversation history"},
	{CmdWebSearch, "/websearch         run a background web search"},
	{CmdReminisce, "/reminisce         let the assistant reminisce in the background"},
	{CmdTheme, "/theme             toggle light and dark"},
	{CmdCopy, "/copy              copy the last assistant message"},
	{CmdQuit, "/quit              exit"},
}

// HelpText lists the slash commands, one per line.
func HelpText() string {
	lines := make([]string, 0, len(commandHelp))
	for _, c := range commandHelp {
		lines = append(lines, c.help)
	}
	return strings.Join(lines, "\n")
}

// ParseCommand returns the command in line, if line is a slash command.
// "//text" escapes a message that starts with a slash.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || strings.HasPrefix(line, "//") {
		return Command{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, true
}

// Unescape strips the leading slash of an escaped "//text" message.
func Unescape(line string) string {
	t := strings.TrimSpace(line)
	if strings.HasPrefix(t, "//") {
		return t[1:]
	}
	return line
}

// Dispatch runs the controller side of a command. Commands that only touch the host
// (theme, copy, quit, help) return handled=false and are left to the caller.
func Dispatch(ctx context.Context, c Controller, cmd Command) (notice string, handled bool, err error) {
	switch cmd.Name {
	case CmdAttach:
		if cmd.Arg == "" {
			return "", true, errors.New("usage: /attach <path>")
		}
		a, err := c.AttachFile(expandHome(cmd.Arg))
		if err != nil {
			return "", true, err
		}
		return "attached " + a.Filename, true, nil
	case CmdClearAttachment:
		c.ClearAttachment()
		return "attachment cleared", true, nil
	case CmdProactive:
		return "", true, c.SendProactiveMessage(ctx)
	case CmdSummarize:
		if err := c.StartSummarization(ctx); err != nil {
			return "", true, err
		}
		return "summarization started", true, nil
	case CmdWebSearch:
		return "", true, c.WebSearch(ctx)
	case CmdReminisce:
		return "", true, c.Reminisce(ctx)
	case CmdTheme, CmdCopy, CmdQuit, CmdHelp:
		return "", false, nil
	}
	return "", true, errors.Errorf("unknown command /%s (try /help)", cmd.Name)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
