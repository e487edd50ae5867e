package remote

import "fmt"

// RemoteError reports a transport failure or a non-2xx answer from the queue
// service. StatusCode is zero when no response was received.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// ParseError reports a 2xx body that could not be decoded, such as a scalar
// endpoint returning something other than a boolean or integer.
type ParseError struct {
	Op   string
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unparsable response %q: %v", e.Op, e.Body, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
