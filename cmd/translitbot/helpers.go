package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/translitbot/internal/bot"
	"github.com/at-ishikawa/translitbot/internal/config"
	"github.com/at-ishikawa/translitbot/internal/database"
	"github.com/at-ishikawa/translitbot/internal/dictionary"
	"github.com/at-ishikawa/translitbot/internal/observe"
	"github.com/at-ishikawa/translitbot/internal/session"
	"github.com/at-ishikawa/translitbot/internal/translit"
	"github.com/at-ishikawa/translitbot/internal/unknown"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// stores holds the configured repositories and the connection they share, if any.
type stores struct {
	dictionary dictionary.Repository
	unknown    unknown.Repository
	db         *sqlx.DB
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	var s stores
	if cfg.UsesDatabase() {
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.db = db
	}

	var err error
	s.dictionary, err = newDictionaryRepository(Storage(cfg.Dictionary.Storage), cfg.Dictionary.Path, cfg.Dictionary, s.db)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	s.unknown, err = newUnknownRepository(Storage(cfg.Unknown.Storage), cfg.Unknown.Path, s.db)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return &s, nil
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("database.Open() > %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		return nil, errors.Join(fmt.Errorf("database.Migrate() > %w", err), db.Close())
	}
	return db, nil
}

func newDictionaryRepository(storage Storage, path string, cfg config.DictionaryConfig, db *sqlx.DB) (dictionary.Repository, error) {
	switch storage {
	case StorageYAML:
		return dictionary.NewYAMLRepository(path), nil
	case StorageFlat:
		return dictionary.NewFlatRepository(path, cfg.Separator, cfg.DefaultCategory), nil
	case StorageMySQL:
		if db == nil {
			return nil, fmt.Errorf("dictionary storage %s needs a database connection", storage)
		}
		return dictionary.NewDBRepository(db), nil
	}
	return nil, fmt.Errorf("unsupported dictionary storage: %s", storage)
}

// newUnknownRepository keeps the unknown list in a text file for every file-based storage.
func newUnknownRepository(storage Storage, path string, db *sqlx.DB) (unknown.Repository, error) {
	switch storage {
	case StorageFile, StorageYAML, StorageFlat:
		return unknown.NewFileRepository(path), nil
	case StorageMySQL:
		if db == nil {
			return nil, fmt.Errorf("unknown storage %s needs a database connection", storage)
		}
		return unknown.NewDBRepository(db), nil
	}
	return nil, fmt.Errorf("unsupported unknown storage: %s", storage)
}

// application is the dispatcher with everything it depends on, loaded from the stores.
type application struct {
	index      *dictionary.Index
	tracker    *unknown.Tracker
	translator *dictionary.Translator
	grammar    dictionary.Grammar
	dispatcher *bot.Dispatcher
}

func newApplication(ctx context.Context, cfg *config.Config, s *stores, metrics *observe.Metrics) (*application, error) {
	script, err := translit.ParseScriptName(cfg.Translit.DefaultScript)
	if err != nil {
		return nil, fmt.Errorf("translit.ParseScriptName() > %w", err)
	}
	mode, err := dictionary.ParseMatchMode(cfg.Dictionary.MatchMode)
	if err != nil {
		return nil, fmt.Errorf("dictionary.ParseMatchMode() > %w", err)
	}

	tracker := unknown.NewTracker(s.unknown)
	if err := tracker.Load(ctx); err != nil {
		return nil, fmt.Errorf("tracker.Load() > %w", err)
	}
	index := dictionary.NewIndex(
		s.dictionary,
		dictionary.WithDefaultCategory(cfg.Dictionary.DefaultCategory),
		dictionary.WithRejectedSeparator(cfg.Dictionary.Separator),
		dictionary.WithUnknownSink(tracker),
	)
	if err := index.Load(ctx); err != nil {
		return nil, fmt.Errorf("index.Load() > %w", err)
	}

	engine := translit.NewEngine(
		translit.WithSeparator(cfg.Translit.Separator),
		translit.WithDefaultScript(script),
	)
	grammar := dictionary.NewGrammar(cfg.Dictionary.Separator, cfg.Dictionary.CategoriesEnabled)
	translator := dictionary.NewTranslator(index, engine, tracker, mode, cfg.Translit.Separator)
	machine := session.NewMachine(session.NewStore(cfg.Session.TTL), index, translator, tracker, grammar)

	return &application{
		index:      index,
		tracker:    tracker,
		translator: translator,
		grammar:    grammar,
		dispatcher: bot.NewDispatcher(
			machine, index, translator, tracker, grammar,
			bot.WithMetrics(metrics),
			bot.WithSearchURLTemplate(cfg.Bot.SearchURLTemplate),
		),
	}, nil
}
