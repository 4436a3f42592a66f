package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
)

// Storage names a backend for the dictionary or the unknown list.
type Storage string

func (s *Storage) Set(val string) error {
	for _, storage := range allStorages {
		if val == string(storage) {
			*s = storage
			return nil
		}
	}
	return fmt.Errorf("invalid storage: %s", val)
}

func (s Storage) String() string {
	return string(s)
}

func (s *Storage) Type() string {
	return "Storage"
}

const (
	StorageYAML  Storage = "yaml"
	StorageFlat  Storage = "flat"
	StorageFile  Storage = "file"
	StorageMySQL Storage = "mysql"
)

// Format is an export or import file layout.
type Format string

func (f *Format) Set(val string) error {
	for _, format := range allFormats {
		if val == string(format) {
			*f = format
			return nil
		}
	}
	return fmt.Errorf("invalid format: %s", val)
}

func (f Format) String() string {
	return string(f)
}

func (f *Format) Type() string {
	return "Format"
}

const (
	FormatYAML Format = "yaml"
	FormatFlat Format = "flat"
)

// MatchMode overrides the configured dictionary match mode.
type MatchMode dictionary.MatchMode

func (m *MatchMode) Set(val string) error {
	mode, err := dictionary.ParseMatchMode(val)
	if err != nil {
		return err
	}
	*m = MatchMode(mode)
	return nil
}

func (m MatchMode) String() string {
	return string(m)
}

func (m *MatchMode) Type() string {
	return "MatchMode"
}

var (
	_ pflag.Value = (*Storage)(nil)
	_ pflag.Value = (*Format)(nil)
	_ pflag.Value = (*MatchMode)(nil)

	allStorages = []Storage{StorageYAML, StorageFlat, StorageFile, StorageMySQL}
	allFormats  = []Format{FormatYAML, FormatFlat}
)
