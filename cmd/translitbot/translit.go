package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
)

func newTranslitCommand() *cobra.Command {
	var mode MatchMode

	cmd := &cobra.Command{
		Use:   "translit TEXT...",
		Short: "Transliterate each argument with the dictionary and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			if mode != "" {
				cfg.Dictionary.MatchMode = mode.String()
			}

			s, err := openStores(ctx, cfg)
			if err != nil {
				return fmt.Errorf("openStores() > %w", err)
			}
			defer func() {
				_ = s.Close()
			}()

			application, err := newApplication(ctx, cfg, s, nil)
			if err != nil {
				return fmt.Errorf("newApplication() > %w", err)
			}

			for _, text := range args {
				result, err := application.translator.Translate(ctx, text)
				if err != nil {
					if !errors.Is(err, dictionary.ErrPersistence) {
						return fmt.Errorf("translator.Translate(%s) > %w", text, err)
					}
					slog.Default().Warn("failed to record unknown words", "text", text, "error", err)
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", result.Text, result.Source); err != nil {
					return fmt.Errorf("fmt.Fprintf() > %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().Var(&mode, "mode", fmt.Sprintf("match mode overriding the config. Possible values are %v", []dictionary.MatchMode{dictionary.MatchWord, dictionary.MatchChar}))
	return cmd
}
