package binance

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteAPIError is a non-2xx answer from the exchange. The status code is
// kept so callers can branch on rate limiting vs upstream failure.
type RemoteAPIError struct {
	Status   int
	Endpoint string
	Body     string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("binance %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

// UserMessage maps the status code to a presentable description.
func (e *RemoteAPIError) UserMessage() string {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return "Rate limited by the exchange. Please wait a moment and try again."
	case e.Status >= 400 && e.Status < 500:
		return "The exchange rejected the request parameters."
	case e.Status >= 500:
		return "The exchange is temporarily unavailable."
	default:
		return "Unexpected response from the exchange."
	}
}

// Retryable reports whether a retry can plausibly succeed. Client errors
// other than 429 are deterministic and retrying them only burns quota.
func (e *RemoteAPIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// NetworkError is a transport-level failure: DNS, refused connection,
// timeout. No HTTP status exists.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("binance %s: network: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage for transport failures.
func (e *NetworkError) UserMessage() string {
	return "Could not reach the exchange. Check your connection."
}

// AsRemote extracts a RemoteAPIError from an error chain.
func AsRemote(err error) (*RemoteAPIError, bool) {
	var re *RemoteAPIError
	ok := errors.As(err, &re)
	return re, ok
}

// AsNetwork extracts a NetworkError from an error chain.
func AsNetwork(err error) (*NetworkError, bool) {
	var ne *NetworkError
	ok := errors.As(err, &ne)
	return ne, ok
}
