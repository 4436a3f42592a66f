package bot

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
	"github.com/at-ishikawa/translitbot/internal/observe"
	"github.com/at-ishikawa/translitbot/internal/session"
	"github.com/at-ishikawa/translitbot/internal/translit"
	"github.com/at-ishikawa/translitbot/internal/unknown"
)

const testUser int64 = 7

type fixture struct {
	dispatcher *Dispatcher
	machine    *session.Machine
	index      *dictionary.Index
	tracker    *unknown.Tracker
}

func newFixture(t *testing.T, mode dictionary.MatchMode, categories bool, opts ...Option) fixture {
	t.Helper()
	ctx := context.Background()

	tracker := unknown.NewTracker(unknown.NewMemoryRepository())
	require.NoError(t, tracker.Load(ctx))
	index := dictionary.NewIndex(
		dictionary.NewMemoryRepository(),
		dictionary.WithUnknownSink(tracker),
		dictionary.WithRejectedSeparator(dictionary.DefaultSeparator),
	)
	require.NoError(t, index.Load(ctx))

	grammar := dictionary.NewGrammar(dictionary.DefaultSeparator, categories)
	translator := dictionary.NewTranslator(index, translit.NewEngine(), tracker, mode, translit.DefaultSeparator)
	machine := session.NewMachine(session.NewStore(time.Minute), index, translator, tracker, grammar)
	return fixture{
		dispatcher: NewDispatcher(machine, index, translator, tracker, grammar, opts...),
		machine:    machine,
		index:      index,
		tracker:    tracker,
	}
}

func (f fixture) send(t *testing.T, text string) Reply {
	t.Helper()
	return f.dispatcher.Handle(context.Background(), Event{UserID: testUser, Text: text})
}

func TestDispatcher_FreeText(t *testing.T) {
	tests := []struct {
		name        string
		mode        dictionary.MatchMode
		setup       []string
		text        string
		wantReply   string
		wantUnknown []string
	}{
		{
			name:        "word mode falls back to the engine and records the token",
			mode:        dictionary.MatchWord,
			text:        "Kyiv",
			wantReply:   "`kyiv`\n🤖 automatic transliteration\n🔎 https://t.me/s/kyiv",
			wantUnknown: []string{"kyiv"},
		},
		{
			name:      "character mode falls back to the engine without recording",
			mode:      dictionary.MatchChar,
			text:      "Kyiv",
			wantReply: "`kyiv`\n🤖 automatic transliteration\n🔎 https://t.me/s/kyiv",
		},
		{
			name:      "added phrase is a dictionary result",
			mode:      dictionary.MatchWord,
			setup:     []string{"/add kyiv-city = kyiv"},
			text:      "Kyiv-City",
			wantReply: "`kyiv`\n📘 from your dictionary\n🔎 https://t.me/s/kyiv",
		},
		{
			name:        "partly known line",
			mode:        dictionary.MatchWord,
			setup:       []string{"/add нова пошта = novaposhta"},
			text:        "Нова Пошта Львів",
			wantReply:   "`novaposhta_[lviv]`\n🧩 partly from your dictionary, [automatic] parts in brackets\n🔎 https://t.me/s/novaposhta_lviv",
			wantUnknown: []string{"львів"},
		},
		{
			name:      "blank text",
			mode:      dictionary.MatchWord,
			text:      "   ",
			wantReply: "🤷 Nothing to transliterate. Send /help for the command list.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.mode, false)
			for _, text := range tt.setup {
				f.send(t, text)
			}

			reply := f.send(t, tt.text)
			assert.Equal(t, tt.wantReply, reply.Text)
			assert.Equal(t, tt.wantUnknown, f.tracker.List())
		})
	}
}

func TestDispatcher_WithoutSearchLink(t *testing.T) {
	f := newFixture(t, dictionary.MatchWord, false, WithSearchURLTemplate(""))

	reply := f.send(t, "Київ")
	assert.Equal(t, "`kyiv`\n🤖 automatic transliteration", reply.Text)
}

func TestDispatcher_PendingSessionTakesPriority(t *testing.T) {
	f := newFixture(t, dictionary.MatchWord, false)

	reply := f.send(t, CommandAdd)
	assert.Contains(t, reply.Text, "➕ Send one or more lines")
	assert.Equal(t, session.ActionAdd, f.machine.Pending(testUser))

	reply = f.send(t, CommandList)
	assert.Contains(t, reply.Text, `⚠️ 1: "/list"`)
	assert.Equal(t, session.ActionAdd, f.machine.Pending(testUser))

	reply = f.send(t, "Київ = Kyiv")
	assert.Contains(t, reply.Text, "✅ 1: київ → `Kyiv`")
	assert.Equal(t, session.ActionIdle, f.machine.Pending(testUser))
	assert.NotEmpty(t, reply.Keyboard)
}

func TestDispatcher_ButtonLabels(t *testing.T) {
	f := newFixture(t, dictionary.MatchWord, false)

	reply := f.send(t, "🗑 Delete")
	assert.Contains(t, reply.Text, "🗑 Send one or more lines to delete")
	assert.Equal(t, session.ActionDelete, f.machine.Pending(testUser))
}

func TestDispatcher_InlineArguments(t *testing.T) {
	f := newFixture(t, dictionary.MatchWord, false)

	reply := f.send(t, "/add@translitbot Київ = kyiv\nЛьвів = lviv")
	assert.Contains(t, reply.Text, "✅ 1: київ → `kyiv`")
	assert.Contains(t, reply.Text, "✅ 2: львів → `lviv`")
	assert.Equal(t, session.ActionIdle, f.machine.Pending(testUser))

	reply = f.send(t, "/translit Київ Одеса")
	assert.Equal(t, "🔤 Київ Одеса → `kyiv_[odesa]`", reply.Text)

	reply = f.send(t, "/delete київ")
	assert.Contains(t, reply.Text, "🗑 1: київ deleted")
	assert.Equal(t, 1, f.index.Len())
}

func TestDispatcher_ReadOnlyCommands(t *testing.T) {
	t.Run("list and export of an empty dictionary", func(t *testing.T) {
		f := newFixture(t, dictionary.MatchWord, true)

		assert.Equal(t, "📭 The dictionary is empty.", f.send(t, CommandList).Text)
		assert.Equal(t, "📭 The dictionary is empty.", f.send(t, CommandExport).Text)
		assert.Equal(t, "📭 There are no unknown words.", f.send(t, CommandShowUnknown).Text)
		assert.Equal(t, session.ActionIdle, f.machine.Pending(testUser))
	})

	t.Run("list groups by category", func(t *testing.T) {
		f := newFixture(t, dictionary.MatchWord, true)
		f.send(t, "/add cities = київ = kyiv\nлюди = тарас = taras")

		reply := f.send(t, CommandList)
		assert.Equal(t, "📖 2 entries\n\n🗂 cities\nкиїв = kyiv\n\n🗂 люди\nтарас = taras", reply.Text)
		assert.Equal(t, session.ActionIdle, f.machine.Pending(testUser))
	})

	t.Run("export attaches the yaml document", func(t *testing.T) {
		f := newFixture(t, dictionary.MatchWord, true)
		f.send(t, "/add cities = київ = kyiv")

		reply := f.send(t, CommandExport)
		require.NotNil(t, reply.Attachment)
		assert.Equal(t, "dictionary.yaml", reply.Attachment.Name)
		assert.Equal(t, "cities:\n  київ: kyiv\n", string(reply.Attachment.Content))
	})

	t.Run("export attaches flat lines without categories", func(t *testing.T) {
		f := newFixture(t, dictionary.MatchWord, false)
		f.send(t, "/add київ = kyiv")

		reply := f.send(t, CommandExport)
		require.NotNil(t, reply.Attachment)
		assert.Equal(t, "dictionary.txt", reply.Attachment.Name)
		assert.Equal(t, "київ = kyiv\n", string(reply.Attachment.Content))
	})
}

func TestDispatcher_UnknownCommands(t *testing.T) {
	f := newFixture(t, dictionary.MatchWord, false)
	f.send(t, "Київ")
	f.send(t, "Львів")

	reply := f.send(t, CommandShowUnknown)
	assert.Equal(t, "❓ 2 unknown words:\nкиїв\nльвів", reply.Text)
	require.NotNil(t, reply.Attachment)
	assert.Equal(t, "київ\nльвів\n", string(reply.Attachment.Content))

	reply = f.send(t, CommandResolveUnknown)
	assert.Contains(t, reply.Text, "«київ»")
	assert.Equal(t, [][]string{{"kyiv", session.AutoKeyword}}, reply.Keyboard)

	f.send(t, "Kyiv")
	reply = f.send(t, "Lviv")
	assert.Contains(t, reply.Text, "Done, 2 words")
	assert.Empty(t, f.tracker.List())

	f.send(t, "Одеса")
	reply = f.send(t, CommandClearUnknown)
	assert.Equal(t, "🧹 Forgot 1 unknown words.", reply.Text)
	assert.Empty(t, f.tracker.List())
}

func TestDispatcher_ImportDocument(t *testing.T) {
	f := newFixture(t, dictionary.MatchWord, false)

	reply := f.dispatcher.Handle(context.Background(), Event{UserID: testUser, Document: []byte("a = b"), DocumentName: "d.txt"})
	assert.Contains(t, reply.Text, CommandImport)
	assert.Equal(t, 0, f.index.Len())

	f.send(t, CommandImport)
	reply = f.dispatcher.Handle(context.Background(), Event{
		UserID:       testUser,
		Document:     []byte("київ = kyiv\nbroken\nльвів = lviv\n"),
		DocumentName: "dictionary.txt",
	})
	assert.Equal(t, "📥 Imported 2 entries, skipped 1 lines.", reply.Text)
	assert.Equal(t, 2, f.index.Len())
}

func TestDispatcher_SeparatorInCategoryResetsSession(t *testing.T) {
	f := newFixture(t, dictionary.MatchWord, true)
	f.send(t, "Київ")
	f.send(t, CommandResolveUnknown)
	f.send(t, session.AutoKeyword)
	require.Equal(t, session.ActionCategoryChoice, f.machine.Pending(testUser))

	reply := f.send(t, "a = b")
	assert.Contains(t, reply.Text, "must not contain")
	assert.Equal(t, session.ActionIdle, f.machine.Pending(testUser))
}

type panickingUnknowns struct{}

func (panickingUnknowns) List() []string {
	panic("boom")
}

func (panickingUnknowns) Clear(context.Context) error {
	return nil
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	f := newFixture(t, dictionary.MatchWord, false)
	metrics, err := observe.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	grammar := dictionary.NewGrammar(dictionary.DefaultSeparator, false)
	translator := dictionary.NewTranslator(f.index, translit.NewEngine(), f.tracker, dictionary.MatchWord, translit.DefaultSeparator)
	dispatcher := NewDispatcher(f.machine, f.index, translator, panickingUnknowns{}, grammar, WithMetrics(metrics))

	var reply Reply
	assert.NotPanics(t, func() {
		reply = dispatcher.Handle(context.Background(), Event{UserID: testUser, Text: CommandShowUnknown})
	})
	assert.Equal(t, genericFailure, reply.Text)
	assert.NotEmpty(t, reply.Keyboard)
	assert.Equal(t, session.ActionIdle, f.machine.Pending(testUser))
}

func TestDispatcher_Help(t *testing.T) {
	f := newFixture(t, dictionary.MatchWord, true)

	reply := f.send(t, CommandStart)
	assert.Contains(t, reply.Text, "/resolve-unknown - transliterate unknown words one by one")
	assert.Contains(t, reply.Text, "[category =] phrase = transliteration")
	assert.NotContains(t, reply.Text, "/start -")
	assert.Equal(t, []string{"📖 List", "🔤 Transliterate"}, reply.Keyboard[0])
}
