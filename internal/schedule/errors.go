package schedule

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/awp4d/internal/app"
)

var (
	ErrFileNotFound          = fmt.Errorf("schedule file not found: %w", app.ErrInput)
	ErrEmptyFile             = fmt.Errorf("schedule file is empty: %w", app.ErrInput)
	ErrMissingRequiredColumn = fmt.Errorf("schedule is missing required column: %w", app.ErrInput)

	// ErrUnterminatedQuote is a row-level failure and never aborts a file.
	ErrUnterminatedQuote = errors.New("unterminated quoted field")
)
