package domain

import (
	"errors"
	"fmt"
)

var (
	// raw table of (date, version) doesn't exist -> unit skipped, not fatal
	ErrRawMissing = errors.New("raw swap table missing")
	// collaborator table doesn't exist -> empty contribution
	ErrExternalAbsent = errors.New("external table missing")
)

// Fatal for the whole batch: missing data root, unparseable pool list, bad config
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error, field=%s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Input lacks a required column; fatal for one (date, version) only
type SchemaError struct {
	Path   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error, file=%s: missing column %q", e.Path, e.Column)
}

func IsFatal(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
