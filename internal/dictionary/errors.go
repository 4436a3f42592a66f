package dictionary

import "errors"

var (
	// ErrNotFound is returned by Edit and Delete when the phrase is absent from the target scope.
	ErrNotFound = errors.New("phrase not found")
	// ErrFormat is returned when a line does not match the expected grammar.
	ErrFormat = errors.New("invalid format")
	// ErrSeparatorInPhrase is returned when a phrase contains the configured separator.
	ErrSeparatorInPhrase = errors.New("phrase contains the separator")
	// ErrPersistence wraps failures of the underlying repository.
	// The in-memory index keeps the mutation when it is returned.
	ErrPersistence = errors.New("persistence failure")
)
