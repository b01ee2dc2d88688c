package protocol

import "fmt"

// UnsupportedProtocolError reports a descriptor whose protocol has no
// registered handler. Configuration error, not retryable.
type UnsupportedProtocolError struct {
	Protocol string
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("protocol: no handler for protocol %q", e.Protocol)
}

// MalformedResponseError reports an upstream payload that could not be
// parsed at all. Distinct from a well-formed response that simply lacks
// the extraction tag, which is a valid empty result.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return "protocol: malformed upstream response: " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
