// Package loader resolves source paths to canonical form, reads them once,
// and owns the text and filename tables for the lifetime of a compilation.
// Tokens produced downstream borrow file text only by index, never by
// pointer, so the text may be dropped once compilation finishes.
package loader

import (
	"errors"
	"os"
	"path/filepath"
)

// Error kinds surfaced by Loader.Load.
var (
	ErrNotFound   = errors.New("loader: file not found")
	ErrReadFailed = errors.New("loader: read failed")
)

// Loader owns file text and a filename<->index map for a single compilation.
type Loader struct {
	index     map[string]int
	filenames []string
	texts     []string
}

// New creates an empty Loader.
func New() *Loader {
	return &Loader{index: make(map[string]int)}
}

// Load resolves path to its canonical form, reads it, and interns it. A
// repeat call with the same canonical path returns the cached index without
// re-reading the file.
func (l *Loader) Load(path string) (int, error) {
	canonical, err := canonicalize(path)
	if err != nil {
		return 0, errorf(ErrNotFound, err)
	}

	if idx, ok := l.index[canonical]; ok {
		return idx, nil
	}

	data, err := os.ReadFile(canonical)
	if err != nil {
		return 0, errorf(ErrReadFailed, err)
	}

	// Append a trailing sentinel so the lexer's end-of-stream logic never
	// has to special-case a bare EOF mid-token.
	text := string(data) + " \n"

	idx := len(l.texts)
	l.index[canonical] = idx
	l.filenames = append(l.filenames, canonical)
	l.texts = append(l.texts, text)
	return idx, nil
}

// LoadString interns literal source text (used for REPL input) under a
// synthetic filename. It is never deduplicated against a real path.
func (l *Loader) LoadString(name, text string) int {
	idx := len(l.texts)
	l.filenames = append(l.filenames, name)
	l.texts = append(l.texts, text+" \n")
	return idx
}

// Text returns the interned text for a file index.
func (l *Loader) Text(index int) string {
	if index < 0 || index >= len(l.texts) {
		return ""
	}
	return l.texts[index]
}

// Filename returns the canonical filename for a file index.
func (l *Loader) Filename(index int) string {
	if index < 0 || index >= len(l.filenames) {
		return ""
	}
	return l.filenames[index]
}

// Canonical resolves path the same way Load does, without reading it. Used
// by the preprocessor's #import to test whether a path was already included.
func (l *Loader) Canonical(path string) (string, error) {
	return canonicalize(path)
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func errorf(kind error, cause error) error {
	return &loaderError{kind: kind, cause: cause}
}

type loaderError struct {
	kind  error
	cause error
}

func (e *loaderError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *loaderError) Unwrap() error { return e.kind }
func (e *loaderError) Is(target error) bool {
	return errors.Is(e.kind, target)
}
