package resolver

import "fmt"

// UnknownServiceError reports a resolution request against a key that is
// not in the registry. User input error, 404-equivalent.
type UnknownServiceError struct {
	Key string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("resolver: unknown service %q", e.Key)
}

// ResolutionFailedError wraps a network or parse failure during an
// upstream fetch. Retryable by the caller; the resolver itself never
// retries and never caches a failed resolution.
type ResolutionFailedError struct {
	Key string
	URL string
	Err error
}

func (e *ResolutionFailedError) Error() string {
	return fmt.Sprintf("resolver: resolving %q against %s: %v", e.Key, e.URL, e.Err)
}

func (e *ResolutionFailedError) Unwrap() error {
	return e.Err
}
