package chat

import "strings"

// Command is a cross-flow navigation command.
type Command int

const (
	CommandNone Command = iota
	CommandMenu
	CommandCancel
	CommandRetry
)

func (c Command) String() string {
	switch c {
	case CommandMenu:
		return NavMenu
	case CommandCancel:
		return NavCancel
	case CommandRetry:
		return NavRetry
	}
	return "none"
}

// Navigator recognizes navigation commands in any message, regardless of flow.
type Navigator struct {
	phrases map[string]Command
}

// NewNavigator creates a navigator with the default phrase set.
func NewNavigator() *Navigator {
	n := &Navigator{phrases: make(map[string]Command)}
	n.AddPhrases(CommandMenu, "menu", "main menu", "home", "#")
	n.AddPhrases(CommandCancel, "cancel", "stop", "exit", "quit", "nirthu")
	n.AddPhrases(CommandRetry, "retry", "again", "repeat")
	return n
}

// AddPhrases maps additional free-text phrases (case-insensitive) to a command.
func (n *Navigator) AddPhrases(cmd Command, phrases ...string) {
	for _, p := range phrases {
		n.phrases[strings.ToLower(strings.TrimSpace(p))] = cmd
	}
}

// Match returns the navigation command carried by the message, if any.
func (n *Navigator) Match(in IncomingMessage) Command {
	if in.Selection != nil {
		if in.Selection.Action != ActionNav {
			return CommandNone
		}
		switch in.Selection.Value {
		case NavMenu:
			return CommandMenu
		case NavCancel:
			return CommandCancel
		case NavRetry:
			return CommandRetry
		}
		return CommandNone
	}
	if in.Type != MessageText {
		return CommandNone
	}
	return n.phrases[strings.ToLower(in.Content())]
}
