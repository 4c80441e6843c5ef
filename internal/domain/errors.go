package domain

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidStateError reports an operation attempted against a session in the
// wrong stage. errors.Is(err, ErrInvalidState) holds.
type InvalidStateError struct {
	SessionID string
	Current   Stage
	Required  []Stage
}

func (e *InvalidStateError) Error() string {
	req := make([]string, 0, len(e.Required))
	for _, s := range e.Required {
		req = append(req, string(s))
	}
	return fmt.Sprintf("%s: session %s is %s, requires %s", ErrInvalidState, e.SessionID, e.Current, strings.Join(req, " or "))
}

// Is matches the ErrInvalidState sentinel.
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// ProviderError wraps a failed model or speech call. errors.Is matches
// ErrProvider and anything Err matches (for example ErrUpstreamTimeout).
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s: op=%s: %v", ErrProvider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: provider=%s op=%s: %v", ErrProvider, e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err unless it already is a ProviderError.
func NewProviderError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}
