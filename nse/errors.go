package nse

import (
	"fmt"
)

// BlockedError means the upstream refused to serve the data request. A
// StatusCode of 0 means the request never got a response (timeout,
// connection reset, rate limiter cancelled).
type BlockedError struct {
	StatusCode int
	Err        error
}

func (e *BlockedError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("nse blocked request: %v", e.Err)
	}
	return fmt.Sprintf("nse blocked request (HTTP %d)", e.StatusCode)
}

func (e *BlockedError) Unwrap() error { return e.Err }

// MalformedError means a 200 response whose body is not a JSON object,
// usually an HTML interstitial.
type MalformedError struct {
	Snippet string
	Err     error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nse returned non-JSON response: %v", e.Err)
	}
	return fmt.Sprintf("nse returned non-JSON response: %q", e.Snippet)
}

func (e *MalformedError) Unwrap() error { return e.Err }
