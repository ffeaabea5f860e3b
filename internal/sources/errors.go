package sources

import "fmt"

// ErrorKind classifies a connector failure.
type ErrorKind string

const (
	ErrAuth      ErrorKind = "auth"
	ErrQuota     ErrorKind = "quota"
	ErrNetwork   ErrorKind = "network"
	ErrMalformed ErrorKind = "malformed"
)

// SourceError is the single normalized failure every connector translates
// platform-specific errors into. Retryable failures (network hiccups, quota
// windows) may be retried on a later run; auth and malformed-response
// failures need operator attention.
type SourceError struct {
	Source    string
	Kind      ErrorKind
	Retryable bool
	Err       error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s error: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error", e.Source, e.Kind)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func newSourceError(source string, kind ErrorKind, retryable bool, err error) *SourceError {
	return &SourceError{Source: source, Kind: kind, Retryable: retryable, Err: err}
}
