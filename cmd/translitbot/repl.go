package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/translitbot/internal/cli"
)

func newREPLCommand() *cobra.Command {
	var userID int64
	var outputDir string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Talk to the bot from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
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

			repl := cli.NewREPL(application.dispatcher, userID, outputDir, cmd.InOrStdin(), cmd.OutOrStdout())
			return repl.Run(ctx)
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 1, "user id the messages are sent as")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "directory attachments such as exports are saved to")
	return cmd
}
