package ollama

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed generation request.
type ErrorKind int

const (
	InvalidEndpoint ErrorKind = iota + 1
	NetworkFailure
	NonSuccessStatus
	DecodeFailure
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidEndpoint:
		return "invalid_endpoint"
	case NetworkFailure:
		return "network_failure"
	case NonSuccessStatus:
		return "non_success_status"
	case DecodeFailure:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// TransformError is returned by Generate. Code is set for NonSuccessStatus.
type TransformError struct {
	Kind ErrorKind
	Code int
	Err  error
}

func (e *TransformError) Error() string {
	switch {
	case e.Kind == NonSuccessStatus:
		return fmt.Sprintf("ollama: server returned %d %s", e.Code, http.StatusText(e.Code))
	case e.Err != nil:
		return fmt.Sprintf("ollama: %s: %v", e.Kind, e.Err)
	default:
		return "ollama: " + e.Kind.String()
	}
}

func (e *TransformError) Unwrap() error { return e.Err }
