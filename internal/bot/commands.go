package bot

import (
	"context"
	"strings"
	"unicode"
)

// Command tokens recognized when no session is pending.
const (
	CommandStart          = "/start"
	CommandHelp           = "/help"
	CommandList           = "/list"
	CommandAdd            = "/add"
	CommandEdit           = "/edit"
	CommandDelete         = "/delete"
	CommandTranslit       = "/translit"
	CommandExport         = "/export"
	CommandImport         = "/import"
	CommandShowUnknown    = "/show-unknown"
	CommandClearUnknown   = "/clear-unknown"
	CommandResolveUnknown = "/resolve-unknown"
)

type handlerFunc func(ctx context.Context, ev Event, args string) (Reply, error)

type command struct {
	token       string
	label       string
	description string
	handler     handlerFunc
}

// registry maps both command tokens and button labels to their command.
type registry struct {
	ordered []command
	byKey   map[string]command
}

func newRegistry(commands ...command) registry {
	r := registry{byKey: make(map[string]command, len(commands)*2)}
	for _, c := range commands {
		r.ordered = append(r.ordered, c)
		r.byKey[c.token] = c
		if c.label != "" {
			r.byKey[c.label] = c
		}
	}
	return r
}

// match looks the message up once. Tokens may carry inline arguments and a
// @botname suffix; button labels must match the whole message.
func (r registry) match(text string) (command, string, bool) {
	text = strings.TrimSpace(text)
	if c, ok := r.byKey[text]; ok {
		return c, "", true
	}
	if !strings.HasPrefix(text, "/") {
		return command{}, "", false
	}

	token, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		token, args = text[:i], text[i:]
	}
	token, _, _ = strings.Cut(token, "@")
	c, ok := r.byKey[strings.ToLower(token)]
	if !ok {
		return command{}, "", false
	}
	return c, strings.TrimSpace(args), true
}

func (r registry) keyboard() [][]string {
	var rows [][]string
	var row []string
	for _, c := range r.ordered {
		if c.label == "" {
			continue
		}
		row = append(row, c.label)
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}
