// Package cli drives the dispatcher from an interactive terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/at-ishikawa/translitbot/internal/bot"
)

const (
	commandQuit = ":quit"
	commandFile = ":file"
)

var errEnd = errors.New("end")

// Dispatcher turns one event into one reply.
type Dispatcher interface {
	Handle(ctx context.Context, ev bot.Event) bot.Reply
}

// REPL reads one message per line. A trailing backslash continues the message
// on the next line, ":file <path>" sends a file as a document and ":quit" exits.
type REPL struct {
	dispatcher   Dispatcher
	userID       int64
	outputDir    string
	stdinReader  *bufio.Reader
	stdoutWriter io.Writer
	bold         *color.Color
	faint        *color.Color
	green        *color.Color
	red          *color.Color
}

func NewREPL(dispatcher Dispatcher, userID int64, outputDir string, stdin io.Reader, stdout io.Writer) *REPL {
	return &REPL{
		dispatcher:   dispatcher,
		userID:       userID,
		outputDir:    outputDir,
		stdinReader:  bufio.NewReader(stdin),
		stdoutWriter: stdout,
		bold:         color.New(color.Bold),
		faint:        color.New(color.Faint),
		green:        color.New(color.FgGreen),
		red:          color.New(color.FgRed),
	}
}

func (repl *REPL) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(
		ctx,
		os.Interrupt,
	)
	defer cancel()

	repl.print(repl.dispatcher.Handle(ctx, bot.Event{UserID: repl.userID, Text: bot.CommandStart}))

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			if ctx.Err() != nil {
				return
			}
			if err := repl.step(ctx); err != nil {
				if !errors.Is(err, errEnd) {
					errCh <- err
				}
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(repl.stdoutWriter, "Received interrupt signal, exiting...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("repl.step() > %w", err)
		}
	}
	return nil
}

func (repl *REPL) step(ctx context.Context) error {
	_, _ = repl.bold.Fprint(repl.stdoutWriter, "> ")
	text, err := repl.readMessage()
	if err != nil {
		return err
	}

	ev := bot.Event{UserID: repl.userID, Text: text}
	switch {
	case text == commandQuit:
		return errEnd
	case strings.HasPrefix(text, commandFile+" "):
		path := strings.TrimSpace(strings.TrimPrefix(text, commandFile))
		content, err := os.ReadFile(path)
		if err != nil {
			_, _ = repl.red.Fprintf(repl.stdoutWriter, "cannot read %s: %v\n", path, err)
			return nil
		}
		ev = bot.Event{UserID: repl.userID, Document: content, DocumentName: filepath.Base(path)}
	}

	repl.print(repl.dispatcher.Handle(ctx, ev))
	return nil
}

// readMessage joins backslash-continued lines. EOF ends the session.
func (repl *REPL) readMessage() (string, error) {
	var lines []string
	for {
		line, err := repl.stdinReader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("stdinReader.ReadString() > %w", err)
		}
		eof := err != nil
		line = strings.TrimRight(line, "\r\n")
		if eof && line == "" {
			if len(lines) == 0 {
				return "", errEnd
			}
			return strings.Join(lines, "\n"), nil
		}
		if !eof && strings.HasSuffix(line, `\`) {
			lines = append(lines, strings.TrimSuffix(line, `\`))
			continue
		}
		return strings.Join(append(lines, line), "\n"), nil
	}
}

func (repl *REPL) print(reply bot.Reply) {
	// Markdown code spans are rendered bold.
	for i, part := range strings.Split(reply.Text, "`") {
		if i%2 == 1 {
			_, _ = repl.bold.Fprint(repl.stdoutWriter, part)
			continue
		}
		_, _ = fmt.Fprint(repl.stdoutWriter, part)
	}
	_, _ = fmt.Fprintln(repl.stdoutWriter)

	for _, row := range reply.Keyboard {
		_, _ = repl.faint.Fprintf(repl.stdoutWriter, "  [%s]\n", strings.Join(row, "] ["))
	}

	if reply.Attachment != nil {
		path := filepath.Join(repl.outputDir, reply.Attachment.Name)
		if err := os.WriteFile(path, reply.Attachment.Content, 0o644); err != nil {
			_, _ = repl.red.Fprintf(repl.stdoutWriter, "cannot write %s: %v\n", path, err)
			return
		}
		_, _ = repl.green.Fprintf(repl.stdoutWriter, "saved %s\n", path)
	}
}
