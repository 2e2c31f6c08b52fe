package blofin

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkError wraps a transport-level failure. These are transient and safe
// to retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ExchangeError is an error returned by the exchange itself (non-zero API
// code or non-2xx HTTP status).
type ExchangeError struct {
	Op      string
	Code    string
	Message string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange error during %s (code %s): %s", e.Op, e.Code, e.Message)
}

// authIndicators are message fragments that point at a broken API session
// rather than a bad request.
var authIndicators = []string{
	"auth",
	"unauthorized",
	"api key",
	"apikey",
	"signature",
	"passphrase",
	"login",
	"401",
}

// Auth reports whether this error looks like an authorization failure that a
// client re-initialization may fix.
func (e *ExchangeError) Auth() bool {
	msg := strings.ToLower(e.Message)
	for _, ind := range authIndicators {
		if strings.Contains(msg, ind) {
			return true
		}
	}
	return e.Code == "401"
}

// IsNetworkError reports whether err is (or wraps) a NetworkError
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsAuthError reports whether err is an ExchangeError indicating an
// authorization problem
func IsAuthError(err error) bool {
	var ee *ExchangeError
	return errors.As(err, &ee) && ee.Auth()
}
