package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/translitbot/internal/config"
	"github.com/at-ishikawa/translitbot/internal/datasync"
	"github.com/at-ishikawa/translitbot/internal/dictionary"
)

func newDictionaryCommand() *cobra.Command {
	rootCommand := cobra.Command{
		Use:   "dictionary",
		Short: "Export, import and copy the dictionary",
	}
	rootCommand.AddCommand(
		newDictionaryExportCommand(),
		newDictionaryImportCommand(),
		newDictionarySyncCommand(),
	)
	return &rootCommand
}

func newDictionaryExportCommand() *cobra.Command {
	format := FormatYAML
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dictionary to a file or stdout",
		Args:  cobra.NoArgs,
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

			data, err := datasync.NewExporter(s.dictionary, s.unknown).Export(ctx)
			if err != nil {
				return fmt.Errorf("exporter.Export() > %w", err)
			}
			content, err := encodeEntries(format, data.Entries, cfg.Dictionary)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(content)
				return err
			}
			if err := os.WriteFile(output, content, 0o644); err != nil {
				return fmt.Errorf("os.WriteFile(%s) > %w", output, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(data.Entries), output)
			return err
		},
	}
	cmd.Flags().Var(&format, "format", fmt.Sprintf("file format. Possible values are %v", allFormats))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file. Defaults to stdout")
	return cmd
}

func newDictionaryImportCommand() *cobra.Command {
	format := FormatFlat
	var dryRun bool
	var updateExisting bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add the entries of a file to the configured dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("os.ReadFile(%s) > %w", args[0], err)
			}
			entries, skipped, err := decodeEntries(format, content, cfg.Dictionary)
			if err != nil {
				return err
			}

			s, err := openStores(ctx, cfg)
			if err != nil {
				return fmt.Errorf("openStores() > %w", err)
			}
			defer func() {
				_ = s.Close()
			}()

			out := cmd.OutOrStdout()
			importer := datasync.NewImporter(s.dictionary, s.unknown, out)
			result, err := importer.ImportDictionary(ctx, entries, datasync.ImportOptions{
				DryRun:         dryRun,
				UpdateExisting: updateExisting,
			})
			if err != nil {
				return fmt.Errorf("importer.ImportDictionary() > %w", err)
			}
			printImportResult(out, result, dryRun)
			if skipped > 0 {
				_, _ = fmt.Fprintf(out, "Malformed lines: %d\n", skipped)
			}
			return nil
		},
	}
	cmd.Flags().Var(&format, "format", fmt.Sprintf("file format. Possible values are %v", allFormats))
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be imported without writing")
	cmd.Flags().BoolVar(&updateExisting, "update-existing", false, "overwrite entries whose transliteration differs")
	return cmd
}

func newDictionarySyncCommand() *cobra.Command {
	to := StorageMySQL
	var dictionaryPath string
	var unknownPath string
	var dryRun bool
	var updateExisting bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the configured dictionary and unknown list into another storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			if to != StorageMySQL && (dictionaryPath == "" || unknownPath == "") {
				return fmt.Errorf("--dictionary-path and --unknown-path are required for storage %s", to)
			}

			source, err := openStores(ctx, cfg)
			if err != nil {
				return fmt.Errorf("openStores() > %w", err)
			}
			defer func() {
				_ = source.Close()
			}()

			db := source.db
			if to == StorageMySQL && db == nil {
				db, err = openDatabase(ctx, cfg.Database)
				if err != nil {
					return err
				}
				defer func() {
					_ = db.Close()
				}()
			}
			dictionaryRepo, err := newDictionaryRepository(to, dictionaryPath, cfg.Dictionary, db)
			if err != nil {
				return err
			}
			unknownRepo, err := newUnknownRepository(to, unknownPath, db)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result, err := datasync.Sync(ctx,
				datasync.NewExporter(source.dictionary, source.unknown),
				datasync.NewImporter(dictionaryRepo, unknownRepo, out),
				datasync.ImportOptions{DryRun: dryRun, UpdateExisting: updateExisting},
			)
			if err != nil {
				return fmt.Errorf("datasync.Sync() > %w", err)
			}
			printImportResult(out, result, dryRun)
			return nil
		},
	}
	cmd.Flags().Var(&to, "to", fmt.Sprintf("destination storage. Possible values are %v", []Storage{StorageYAML, StorageFlat, StorageMySQL}))
	cmd.Flags().StringVar(&dictionaryPath, "dictionary-path", "", "destination dictionary file for file storages")
	cmd.Flags().StringVar(&unknownPath, "unknown-path", "", "destination unknown list file for file storages")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be copied without writing")
	cmd.Flags().BoolVar(&updateExisting, "update-existing", false, "overwrite entries whose transliteration differs")
	return cmd
}

func encodeEntries(format Format, entries []dictionary.Entry, cfg config.DictionaryConfig) ([]byte, error) {
	switch format {
	case FormatYAML:
		content, err := dictionary.EncodeYAML(entries)
		if err != nil {
			return nil, fmt.Errorf("dictionary.EncodeYAML() > %w", err)
		}
		return content, nil
	case FormatFlat:
		return dictionary.EncodeFlat(entries, cfg.Separator, cfg.DefaultCategory), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

// decodeEntries returns the parsed entries and the number of malformed lines.
func decodeEntries(format Format, content []byte, cfg config.DictionaryConfig) ([]dictionary.Entry, int, error) {
	switch format {
	case FormatYAML:
		lines, err := dictionary.DecodeYAML(content)
		if err != nil {
			return nil, 0, fmt.Errorf("dictionary.DecodeYAML() > %w", err)
		}
		return dictionary.LinesToEntries(lines, cfg.DefaultCategory), 0, nil
	case FormatFlat:
		grammar := dictionary.NewGrammar(cfg.Separator, cfg.CategoriesEnabled)
		lines, skipped := dictionary.DecodeFlat(content, grammar)
		return dictionary.LinesToEntries(lines, cfg.DefaultCategory), skipped, nil
	}
	return nil, 0, fmt.Errorf("unsupported format: %s", format)
}

func printImportResult(w io.Writer, result *datasync.ImportResult, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = "[dry-run] "
	}
	_, _ = fmt.Fprintf(w, "%sDictionary: %d new, %d updated, %d skipped\n",
		prefix, result.DictionaryNew, result.DictionaryUpdated, result.DictionarySkipped)
	if result.UnknownNew > 0 || result.UnknownSkipped > 0 {
		_, _ = fmt.Fprintf(w, "%sUnknown: %d new, %d skipped\n", prefix, result.UnknownNew, result.UnknownSkipped)
	}
}
