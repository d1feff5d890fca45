package client

import "fmt"

// Placeholder texts used when an error response body cannot be read. The
// failing call is never failed a second time over an unreadable body.
const (
	unknownQuoteError    = "Unknown error"
	unknownAssembleError = "Failed to get error message"
)

// QuoteError reports a non-2xx response from the quote endpoint
type QuoteError struct {
	StatusCode int
	Body       string
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote request failed: API error (status: %d): %s", e.StatusCode, e.Body)
}

// AssembleError reports a non-2xx response from the assemble endpoint
type AssembleError struct {
	StatusCode int
	Body       string
}

func (e *AssembleError) Error() string {
	return fmt.Sprintf("transaction assembly failed: API error (status: %d): %s", e.StatusCode, e.Body)
}

// DecodeError reports a response body that is not valid JSON or does not
// match the expected shape. Distinct from transport and HTTP-status errors.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
