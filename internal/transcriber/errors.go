package transcriber

import (
	"errors"
	"fmt"
)

// ProviderError marks a failure reported by, or on the way to, the
// transcription provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e == nil || e.Err == nil {
		return "transcription provider error"
	}
	return fmt.Sprintf("%s transcription: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
