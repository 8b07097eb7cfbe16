package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manash/cyberedit/internal/provider"
)

var (
	ErrQuotaExceeded        = errors.New("free trial exhausted: a license key is required")
	ErrInvalidLicense       = errors.New("invalid license key")
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrNoEditor             = errors.New("no image editor configured")
)

const GenericGenerationMessage = "An error occurred during generation. Please check your API key and prompt."

// ValidationError reports input the user can fix: a missing image or a
// blank prompt.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// GenerationError is the outcome of a submission that stopped on a failed
// external call. It matches provider.ErrGenerationFailed.
type GenerationError struct {
	Index  int
	Prompt string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err == nil || strings.TrimSpace(e.Err.Error()) == "" {
		return GenericGenerationMessage
	}
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == provider.ErrGenerationFailed
}
