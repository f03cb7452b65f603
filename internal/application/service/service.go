package service

import "errors"

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrEmptyInput is returned when a description or receipt text is blank.
	ErrEmptyInput = errors.New("empty input")
	// ErrUnsupportedFile is returned for upload types no extractor handles.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrNoParser is returned when no receipt parser recognises the text and
	// the AI extractor is disabled.
	ErrNoParser = errors.New("no receipt parser matched")
)
