package retry

import "fmt"

// ExhaustedError reports that every allowed attempt failed. It wraps the
// failure from the final attempt.
type ExhaustedError struct {
	Label    string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Label, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// PermanentError reports a failure the engine will not retry.
type PermanentError struct {
	Label string
	Err   error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: permanent failure: %v", e.Label, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}
