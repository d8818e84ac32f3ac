package httpclient

import "fmt"

// InvalidBodyError is returned by BuildRequest when the raw JSON body does
// not parse. Nothing is dispatched.
type InvalidBodyError struct {
	Cause error
}

func (e *InvalidBodyError) Error() string {
	return fmt.Sprintf("invalid JSON body: %v", e.Cause)
}

func (e *InvalidBodyError) Unwrap() error { return e.Cause }

// UnsupportedMethodError is returned before any network activity for verbs
// outside GET, POST, PUT, PATCH and DELETE.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported method %q", e.Method)
}

// RequestError wraps a transport or timeout failure during dispatch.
type RequestError struct {
	Method string
	URL    string
	Cause  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Cause)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// ResponseParseError reports a response body that is not JSON. Presentation
// falls back to raw text.
type ResponseParseError struct {
	Cause error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("response body is not JSON: %v", e.Cause)
}

func (e *ResponseParseError) Unwrap() error { return e.Cause }
