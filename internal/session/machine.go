package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
)

// AutoKeyword asks manual resolution to transliterate every remaining phrase automatically.
const AutoKeyword = "auto"

// UnknownList is the read side of the unknown tracker used to fill the resolution queue.
type UnknownList interface {
	List() []string
}

// Machine implements the per-user state transitions.
type Machine struct {
	store      *Store
	index      *dictionary.Index
	translator *dictionary.Translator
	unknowns   UnknownList
	grammar    dictionary.Grammar
}

func NewMachine(
	store *Store,
	index *dictionary.Index,
	translator *dictionary.Translator,
	unknowns UnknownList,
	grammar dictionary.Grammar,
) *Machine {
	return &Machine{
		store:      store,
		index:      index,
		translator: translator,
		unknowns:   unknowns,
		grammar:    grammar,
	}
}

// Pending returns the action the user's session waits on, or ActionIdle.
func (m *Machine) Pending(userID int64) Action {
	s, ok := m.store.Get(userID)
	if !ok {
		return ActionIdle
	}
	return s.Action
}

// Reset drops the user's session.
func (m *Machine) Reset(userID int64) {
	m.store.Delete(userID)
}

// Begin enters action for the user and returns its prompt.
func (m *Machine) Begin(ctx context.Context, userID int64, action Action) (Reply, error) {
	switch action {
	case ActionAdd, ActionEdit, ActionDelete, ActionTranslit, ActionImport:
		m.store.Put(Session{UserID: userID, Action: action})
		return Reply{Text: m.prompt(action)}, nil
	case ActionManualResolution:
		return m.BeginResolution(ctx, userID, "")
	}
	return Reply{}, fmt.Errorf("begin %q: %w", action, ErrUnknownAction)
}

// BeginResolution queues every tracked unknown phrase for manual transliteration.
// Resolved phrases are committed to category, or to the default category when empty.
func (m *Machine) BeginResolution(_ context.Context, userID int64, category string) (Reply, error) {
	queue := m.unknowns.List()
	if len(queue) == 0 {
		m.store.Delete(userID)
		return Reply{Text: "📭 There are no unknown words to resolve."}, nil
	}
	if category = strings.TrimSpace(category); category == "" {
		category = m.index.DefaultCategory()
	}

	s := Session{UserID: userID, Action: ActionManualResolution, Queue: queue, Category: category}
	m.store.Put(s)
	return m.resolutionPrompt(s), nil
}

// Handle feeds input to the user's pending session. Any error resets the session.
func (m *Machine) Handle(ctx context.Context, userID int64, input Input) (Reply, error) {
	s, ok := m.store.Get(userID)
	if !ok {
		return Reply{}, ErrNoSession
	}

	reply, next, err := m.dispatch(ctx, s, input)
	if err != nil {
		m.store.Delete(userID)
		return Reply{}, fmt.Errorf("handle %s > %w", s.Action, err)
	}
	if next == nil {
		m.store.Delete(userID)
	} else {
		m.store.Put(*next)
	}
	return reply, nil
}

func (m *Machine) dispatch(ctx context.Context, s Session, input Input) (Reply, *Session, error) {
	switch s.Action {
	case ActionAdd, ActionEdit:
		return m.handlePairs(ctx, s, input.Text)
	case ActionDelete:
		return m.handleDelete(ctx, input.Text)
	case ActionTranslit:
		return m.handleTranslit(ctx, input.Text)
	case ActionImport:
		return m.handleImport(ctx, input)
	case ActionManualResolution:
		return m.handleManual(ctx, s, input.Text)
	case ActionCategoryChoice:
		return m.handleCategoryChoice(ctx, s, input.Text)
	}
	return Reply{}, nil, fmt.Errorf("handle %q: %w", s.Action, ErrUnknownAction)
}

// handlePairs applies add or edit to every well-formed line. When no line is
// well-formed the session stays open so the user can retry.
func (m *Machine) handlePairs(ctx context.Context, s Session, text string) (Reply, *Session, error) {
	lines := dictionary.SplitLines(text)
	report := make([]string, 0, len(lines))
	wellFormed := 0

	for i, raw := range lines {
		line, err := m.grammar.ParsePair(raw)
		if err != nil {
			report = append(report, fmt.Sprintf("⚠️ %d: %q, expected `%s`", i+1, raw, m.grammar.PairUsage()))
			continue
		}
		wellFormed++

		var entry dictionary.Entry
		if s.Action == ActionEdit {
			entry, err = m.index.Edit(ctx, line.Category, line.Phrase, line.Transliteration)
		} else {
			entry, err = m.index.Add(ctx, line.Category, line.Phrase, line.Transliteration)
		}
		report = append(report, m.mutationLine(i+1, s.Action, line.Phrase, entry, err))
	}

	if wellFormed == 0 {
		report = append(report, m.prompt(s.Action))
		return Reply{Text: strings.Join(report, "\n")}, &s, nil
	}
	return Reply{Text: strings.Join(report, "\n")}, nil, nil
}

func (m *Machine) handleDelete(ctx context.Context, text string) (Reply, *Session, error) {
	lines := dictionary.SplitLines(text)
	if len(lines) == 0 {
		return Reply{Text: fmt.Sprintf("⚠️ Nothing to delete. Expected `%s`", m.grammar.PhraseUsage())}, nil, nil
	}

	report := make([]string, 0, len(lines))
	for i, raw := range lines {
		line, err := m.grammar.ParsePhrase(raw)
		if err != nil {
			report = append(report, fmt.Sprintf("⚠️ %d: %q, expected `%s`", i+1, raw, m.grammar.PhraseUsage()))
			continue
		}
		entry, err := m.index.Delete(ctx, line.Category, line.Phrase)
		report = append(report, m.mutationLine(i+1, ActionDelete, line.Phrase, entry, err))
	}
	return Reply{Text: strings.Join(report, "\n")}, nil, nil
}

func (m *Machine) handleTranslit(ctx context.Context, text string) (Reply, *Session, error) {
	lines := dictionary.SplitLines(text)
	if len(lines) == 0 {
		return Reply{Text: "⚠️ Nothing to transliterate."}, nil, nil
	}

	results := make([]string, 0, len(lines))
	for _, line := range lines {
		result, err := m.translator.Translate(ctx, line)
		if err != nil {
			if !errors.Is(err, dictionary.ErrPersistence) {
				return Reply{}, nil, fmt.Errorf("translator.Translate() > %w", err)
			}
			slog.Default().Warn("failed to record unknown phrases", "line", line, "error", err)
		}
		results = append(results, fmt.Sprintf("🔤 %s → `%s`", result.Input, result.Marked))
	}
	return Reply{Text: strings.Join(results, "\n")}, nil, nil
}

// handleImport merges a flat or YAML document into the dictionary. Unparseable lines are ignored.
func (m *Machine) handleImport(ctx context.Context, input Input) (Reply, *Session, error) {
	content := input.Document
	if len(content) == 0 {
		content = []byte(input.Text)
	}

	var lines []dictionary.Line
	skipped := 0
	switch strings.ToLower(filepath.Ext(input.DocumentName)) {
	case ".yml", ".yaml":
		parsed, err := dictionary.DecodeYAML(content)
		if err != nil {
			return Reply{Text: "⚠️ The file is not a valid `category: {phrase: transliteration}` document."}, nil, nil
		}
		lines = parsed
	default:
		lines, skipped = dictionary.DecodeFlat(content, m.grammar)
	}

	imported := 0
	for _, line := range lines {
		if _, err := m.index.Add(ctx, line.Category, line.Phrase, line.Transliteration); err != nil {
			if errors.Is(err, dictionary.ErrPersistence) {
				return Reply{}, nil, fmt.Errorf("index.Add(%s) > %w", line.Phrase, err)
			}
			skipped++
			continue
		}
		imported++
	}
	return Reply{Text: fmt.Sprintf("📥 Imported %d entries, skipped %d lines.", imported, skipped)}, nil, nil
}

// handleManual commits the reply as the transliteration of the queue head.
// An empty reply or AutoKeyword resolves every remaining phrase automatically.
func (m *Machine) handleManual(ctx context.Context, s Session, text string) (Reply, *Session, error) {
	answer := strings.TrimSpace(text)
	if answer == "" || strings.EqualFold(answer, AutoKeyword) {
		if m.grammar.CategoriesEnabled {
			next := Session{UserID: s.UserID, Action: ActionCategoryChoice, Queue: s.Queue, Resolved: s.Resolved}
			return Reply{
				Text:    fmt.Sprintf("🗂 Choose or type a category for %d remaining words.", len(s.Queue)),
				Choices: m.categoryChoices(),
			}, &next, nil
		}
		return m.autoResolve(ctx, s, s.Category)
	}

	head := s.Queue[0]
	entry, err := m.index.Add(ctx, s.Category, head, answer)
	if err != nil {
		return Reply{}, nil, fmt.Errorf("index.Add(%s) > %w", head, err)
	}

	next := s
	next.Queue = append([]string(nil), s.Queue[1:]...)
	next.Resolved++
	saved := fmt.Sprintf("✅ %s → `%s`", entry.Phrase, entry.Transliteration)
	if len(next.Queue) == 0 {
		return Reply{Text: fmt.Sprintf("%s\n🎉 Done, %d words added to the dictionary.", saved, next.Resolved)}, nil, nil
	}

	prompt := m.resolutionPrompt(next)
	prompt.Text = saved + "\n" + prompt.Text
	return prompt, &next, nil
}

func (m *Machine) handleCategoryChoice(ctx context.Context, s Session, text string) (Reply, *Session, error) {
	category := strings.TrimSpace(text)
	if category == "" {
		category = m.index.DefaultCategory()
	}
	if strings.Contains(category, m.grammar.Separator) {
		return Reply{}, nil, fmt.Errorf("category %q: %w", category, dictionary.ErrSeparatorInPhrase)
	}
	return m.autoResolve(ctx, s, category)
}

func (m *Machine) autoResolve(ctx context.Context, s Session, category string) (Reply, *Session, error) {
	resolved := s.Resolved
	var failed []string
	for _, phrase := range s.Queue {
		auto := m.translator.Auto(phrase)
		if auto == "" {
			failed = append(failed, phrase)
			continue
		}
		if _, err := m.index.Add(ctx, category, phrase, auto); err != nil {
			if errors.Is(err, dictionary.ErrPersistence) {
				return Reply{}, nil, fmt.Errorf("index.Add(%s) > %w", phrase, err)
			}
			failed = append(failed, phrase)
			continue
		}
		resolved++
	}

	text := fmt.Sprintf("🤖 Done, %d words added to «%s».", resolved, category)
	if len(failed) > 0 {
		text += fmt.Sprintf("\n⚠️ Could not transliterate: %s", strings.Join(failed, ", "))
	}
	return Reply{Text: text}, nil, nil
}

func (m *Machine) resolutionPrompt(s Session) Reply {
	head := s.Queue[0]
	auto := m.translator.Auto(head)
	total := s.Resolved + len(s.Queue)

	var b strings.Builder
	fmt.Fprintf(&b, "✏️ (%d/%d) Send the transliteration for «%s».", s.Resolved+1, total, head)
	if similar, _, ok := m.index.Similar(head, dictionary.DefaultSimilarityThreshold); ok {
		fmt.Fprintf(&b, "\n🔎 Similar: %s → `%s`", similar.Phrase, similar.Transliteration)
	}
	fmt.Fprintf(&b, "\nSend `%s` to transliterate all remaining words automatically.", AutoKeyword)

	choices := []string{AutoKeyword}
	if auto != "" {
		choices = append([]string{auto}, choices...)
	}
	return Reply{Text: b.String(), Choices: choices}
}

func (m *Machine) categoryChoices() []string {
	choices := m.index.Categories()
	for _, c := range choices {
		if c == m.index.DefaultCategory() {
			return choices
		}
	}
	return append(choices, m.index.DefaultCategory())
}

func (m *Machine) prompt(action Action) string {
	switch action {
	case ActionAdd:
		return fmt.Sprintf("➕ Send one or more lines: `%s`", m.grammar.PairUsage())
	case ActionEdit:
		return fmt.Sprintf("✏️ Send one or more lines to change: `%s`", m.grammar.PairUsage())
	case ActionDelete:
		return fmt.Sprintf("🗑 Send one or more lines to delete: `%s`", m.grammar.PhraseUsage())
	case ActionTranslit:
		return "🔤 Send the text to transliterate, one item per line."
	case ActionImport:
		return fmt.Sprintf("📥 Send a .txt file with `%s` lines, a .yml dictionary, or paste the lines.", m.grammar.PairUsage())
	}
	return ""
}

func (m *Machine) mutationLine(n int, action Action, phrase string, entry dictionary.Entry, err error) string {
	switch {
	case err == nil && action == ActionDelete:
		return fmt.Sprintf("🗑 %d: %s deleted", n, entry.Phrase)
	case err == nil:
		return fmt.Sprintf("✅ %d: %s → `%s`", n, entry.Phrase, entry.Transliteration)
	case errors.Is(err, dictionary.ErrNotFound):
		return fmt.Sprintf("⚠️ %d: %s is not in the dictionary", n, dictionary.NormalizePhrase(phrase))
	case errors.Is(err, dictionary.ErrSeparatorInPhrase):
		return fmt.Sprintf("⚠️ %d: %s must not contain %q", n, phrase, m.grammar.Separator)
	case errors.Is(err, dictionary.ErrFormat):
		return fmt.Sprintf("⚠️ %d: %q is incomplete", n, phrase)
	}
	slog.Default().Error("dictionary mutation failed", "action", action, "phrase", phrase, "error", err)
	return fmt.Sprintf("❌ %d: %s could not be saved", n, phrase)
}
