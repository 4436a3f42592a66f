package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
	"github.com/at-ishikawa/translitbot/internal/observe"
	"github.com/at-ishikawa/translitbot/internal/session"
	"github.com/at-ishikawa/translitbot/internal/unknown"
)

// DefaultSearchURLTemplate links a transliteration to the public channel search.
const DefaultSearchURLTemplate = "https://t.me/s/%s"

const genericFailure = "❌ Something went wrong. The current action was cancelled, please try again."

// UnknownList is the part of the unknown tracker the dispatcher reads and clears.
type UnknownList interface {
	List() []string
	Clear(ctx context.Context) error
}

type Option func(*Dispatcher)

func WithMetrics(metrics *observe.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// WithSearchURLTemplate sets the fmt template receiving the escaped transliteration.
// An empty template disables the link.
func WithSearchURLTemplate(template string) Option {
	return func(d *Dispatcher) {
		d.searchURLTemplate = template
	}
}

// Dispatcher handles one event per call. A pending session takes priority over
// command matching: while a user has a pending action, every message, including
// one that looks like a command, is consumed as that action's input. Sessions end
// on completion, on any error, or when they expire.
type Dispatcher struct {
	machine           *session.Machine
	index             *dictionary.Index
	translator        *dictionary.Translator
	unknowns          UnknownList
	grammar           dictionary.Grammar
	metrics           *observe.Metrics
	searchURLTemplate string
	commands          registry
}

func NewDispatcher(
	machine *session.Machine,
	index *dictionary.Index,
	translator *dictionary.Translator,
	unknowns UnknownList,
	grammar dictionary.Grammar,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		machine:           machine,
		index:             index,
		translator:        translator,
		unknowns:          unknowns,
		grammar:           grammar,
		searchURLTemplate: DefaultSearchURLTemplate,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.commands = newRegistry(
		command{token: CommandStart, description: "show this overview", handler: d.help},
		command{token: CommandHelp, description: "show this overview", handler: d.help},
		command{token: CommandList, label: "📖 List", description: "show the dictionary", handler: d.list},
		command{token: CommandTranslit, label: "🔤 Transliterate", description: "transliterate several lines", handler: d.begin(session.ActionTranslit)},
		command{token: CommandAdd, label: "➕ Add", description: "add or replace entries", handler: d.begin(session.ActionAdd)},
		command{token: CommandEdit, label: "✏️ Edit", description: "change existing entries", handler: d.begin(session.ActionEdit)},
		command{token: CommandDelete, label: "🗑 Delete", description: "delete entries", handler: d.begin(session.ActionDelete)},
		command{token: CommandImport, label: "📥 Import", description: "merge a dictionary file", handler: d.begin(session.ActionImport)},
		command{token: CommandExport, label: "📤 Export", description: "download the dictionary", handler: d.export},
		command{token: CommandShowUnknown, label: "❓ Unknown words", description: "show words without a dictionary entry", handler: d.showUnknown},
		command{token: CommandResolveUnknown, label: "🧩 Resolve unknown", description: "transliterate unknown words one by one", handler: d.resolveUnknown},
		command{token: CommandClearUnknown, label: "🧹 Clear unknown", description: "forget every unknown word", handler: d.clearUnknown},
	)
	return d
}

// Handle never returns an error: failures become a generic reply and reset the
// user's session.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (reply Reply) {
	started := time.Now()
	route := "text"
	defer func() {
		if r := recover(); r != nil {
			d.machine.Reset(ev.UserID)
			d.metrics.ObserveFailure("panic")
			slog.Default().Error("recovered from panic while handling event",
				"user_id", ev.UserID, "action", route, "panic", r)
			reply = Reply{Text: genericFailure, Keyboard: d.commands.keyboard()}
		}
		d.metrics.ObserveEvent(route, time.Since(started))
	}()

	if action := d.machine.Pending(ev.UserID); action != session.ActionIdle {
		route = "session:" + string(action)
		return d.handleSession(ctx, ev, action)
	}

	if c, args, ok := d.commands.match(ev.Text); ok {
		route = c.token
		r, err := c.handler(ctx, ev, args)
		if err != nil {
			return d.fail(ev.UserID, route, err)
		}
		return r
	}

	if len(ev.Document) > 0 {
		route = "document"
		return Reply{Text: fmt.Sprintf("📎 To merge a file into the dictionary, send %s first.", CommandImport)}
	}
	return d.transliterate(ctx, ev)
}

func (d *Dispatcher) handleSession(ctx context.Context, ev Event, action session.Action) Reply {
	r, err := d.machine.Handle(ctx, ev.UserID, session.Input{
		Text:         ev.Text,
		Document:     ev.Document,
		DocumentName: ev.DocumentName,
	})
	if err != nil {
		return d.fail(ev.UserID, string(action), err)
	}
	return d.sessionReply(ev.UserID, r)
}

func (d *Dispatcher) sessionReply(userID int64, r session.Reply) Reply {
	reply := Reply{Text: r.Text}
	switch {
	case len(r.Choices) > 0:
		reply.Keyboard = [][]string{r.Choices}
	case d.machine.Pending(userID) == session.ActionIdle:
		reply.Keyboard = d.commands.keyboard()
	}
	return reply
}

func (d *Dispatcher) fail(userID int64, action string, err error) Reply {
	d.machine.Reset(userID)
	d.metrics.ObserveFailure("error")
	slog.Default().Error("failed to handle event", "user_id", userID, "action", action, "error", err)
	if errors.Is(err, dictionary.ErrSeparatorInPhrase) {
		return Reply{
			Text:     fmt.Sprintf("⚠️ Categories, phrases and transliterations must not contain %q. The action was cancelled.", d.grammar.Separator),
			Keyboard: d.commands.keyboard(),
		}
	}
	return Reply{Text: genericFailure, Keyboard: d.commands.keyboard()}
}

// begin enters action. Inline arguments are fed to the new session right away.
func (d *Dispatcher) begin(action session.Action) handlerFunc {
	return func(ctx context.Context, ev Event, args string) (Reply, error) {
		r, err := d.machine.Begin(ctx, ev.UserID, action)
		if err != nil {
			return Reply{}, fmt.Errorf("machine.Begin(%s) > %w", action, err)
		}
		if args == "" {
			return d.sessionReply(ev.UserID, r), nil
		}

		r, err = d.machine.Handle(ctx, ev.UserID, session.Input{Text: args})
		if err != nil {
			return Reply{}, fmt.Errorf("machine.Handle(%s) > %w", action, err)
		}
		return d.sessionReply(ev.UserID, r), nil
	}
}

func (d *Dispatcher) resolveUnknown(ctx context.Context, ev Event, args string) (Reply, error) {
	r, err := d.machine.BeginResolution(ctx, ev.UserID, args)
	if err != nil {
		return Reply{}, fmt.Errorf("machine.BeginResolution() > %w", err)
	}
	return d.sessionReply(ev.UserID, r), nil
}

func (d *Dispatcher) help(context.Context, Event, string) (Reply, error) {
	var b strings.Builder
	b.WriteString("👋 Send any text and I will transliterate it, preferring your dictionary.\n\n")
	for _, c := range d.commands.ordered {
		if c.token == CommandStart {
			continue
		}
		fmt.Fprintf(&b, "%s - %s\n", c.token, c.description)
	}
	fmt.Fprintf(&b, "\nDictionary lines look like `%s`.", d.grammar.PairUsage())
	return Reply{Text: b.String(), Keyboard: d.commands.keyboard()}, nil
}

func (d *Dispatcher) list(context.Context, Event, string) (Reply, error) {
	entries := d.index.Entries()
	if len(entries) == 0 {
		return Reply{Text: "📭 The dictionary is empty."}, nil
	}
	return Reply{Text: renderEntries(entries, d.grammar)}, nil
}

func (d *Dispatcher) export(context.Context, Event, string) (Reply, error) {
	entries := d.index.Entries()
	if len(entries) == 0 {
		return Reply{Text: "📭 The dictionary is empty."}, nil
	}

	if d.grammar.CategoriesEnabled {
		content, err := dictionary.EncodeYAML(entries)
		if err != nil {
			return Reply{}, fmt.Errorf("dictionary.EncodeYAML() > %w", err)
		}
		return Reply{
			Text:       fmt.Sprintf("📤 %d entries.", len(entries)),
			Attachment: &Attachment{Name: "dictionary.yaml", Content: content},
		}, nil
	}
	return Reply{
		Text:       fmt.Sprintf("📤 %d entries.", len(entries)),
		Attachment: &Attachment{Name: "dictionary.txt", Content: dictionary.EncodeFlat(entries, d.grammar.Separator, d.index.DefaultCategory())},
	}, nil
}

func (d *Dispatcher) showUnknown(context.Context, Event, string) (Reply, error) {
	phrases := d.unknowns.List()
	if len(phrases) == 0 {
		return Reply{Text: "📭 There are no unknown words."}, nil
	}
	return Reply{
		Text:       fmt.Sprintf("❓ %d unknown words:\n%s", len(phrases), strings.Join(phrases, "\n")),
		Attachment: &Attachment{Name: "unknown.txt", Content: unknown.Encode(phrases)},
	}, nil
}

func (d *Dispatcher) clearUnknown(ctx context.Context, _ Event, _ string) (Reply, error) {
	n := len(d.unknowns.List())
	if err := d.unknowns.Clear(ctx); err != nil {
		return Reply{}, fmt.Errorf("unknowns.Clear() > %w", err)
	}
	return Reply{Text: fmt.Sprintf("🧹 Forgot %d unknown words.", n)}, nil
}

// transliterate is the default action for free text.
func (d *Dispatcher) transliterate(ctx context.Context, ev Event) Reply {
	result, err := d.translator.Translate(ctx, ev.Text)
	if err != nil {
		slog.Default().Warn("failed to record unknown phrases", "user_id", ev.UserID, "error", err)
	}
	if result.Text == "" {
		return Reply{Text: fmt.Sprintf("🤷 Nothing to transliterate. Send %s for the command list.", CommandHelp)}
	}
	d.metrics.ObserveTranslation(string(result.Source), len(result.Unknown))

	display := result.Text
	if result.Source == dictionary.SourceMixed {
		display = result.Marked
	}
	var b strings.Builder
	fmt.Fprintf(&b, "`%s`\n%s", display, sourceTag(result.Source))
	if d.searchURLTemplate != "" {
		fmt.Fprintf(&b, "\n🔎 "+d.searchURLTemplate, url.PathEscape(result.Text))
	}
	return Reply{Text: b.String()}
}
