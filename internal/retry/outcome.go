package retry

// Kind classifies the result of a single attempt.
type Kind int

const (
	// KindSuccess means the attempt completed and nothing more is needed.
	KindSuccess Kind = iota
	// KindRetryable means the attempt failed in a way that may heal.
	KindRetryable
	// KindPermanent means the attempt failed and retrying cannot help.
	KindPermanent
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRetryable:
		return "retryable"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Outcome is the verdict of a single attempt. Operations report one instead
// of raising errors, so the engine never inspects error types to decide
// whether to keep going.
type Outcome struct {
	Kind Kind
	Err  error
}

// Succeed reports a completed attempt.
func Succeed() Outcome {
	return Outcome{Kind: KindSuccess}
}

// Retry reports a transient failure worth another attempt.
func Retry(err error) Outcome {
	return Outcome{Kind: KindRetryable, Err: err}
}

// Abort reports a failure that no amount of retrying will fix.
func Abort(err error) Outcome {
	return Outcome{Kind: KindPermanent, Err: err}
}

// Success reports whether the attempt completed.
func (o Outcome) Success() bool {
	return o.Kind == KindSuccess
}
