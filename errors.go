package yolodetect

import (
	"errors"
	"fmt"
)

// ErrorCode classifies the failures reported by the Detector
type ErrorCode int

// error codes returned by the Detector.  Load time codes leave the Detector
// unloaded, detection time codes leave the loaded Model untouched.
const (
	ConfigNotFound ErrorCode = iota + 1
	ConfigMalformed
	ModelArtifactMissing
	ModelLoadFailed
	InvalidImage
	MalformedOutputTensor
	NoImageLoaded
	ModelNotLoaded
	InferenceFailed
)

// String returns a readable description of the error code
func (e ErrorCode) String() string {
	switch e {
	case ConfigNotFound:
		return "configuration not found"
	case ConfigMalformed:
		return "configuration is malformed"
	case ModelArtifactMissing:
		return "model artifact is missing"
	case ModelLoadFailed:
		return "model failed to load"
	case InvalidImage:
		return "image is invalid"
	case MalformedOutputTensor:
		return "model output tensor is malformed"
	case NoImageLoaded:
		return "no image loaded"
	case ModelNotLoaded:
		return "model is not loaded"
	case InferenceFailed:
		return "inference failed"
	default:
		return fmt.Sprintf("unknown error code %d", int(e))
	}
}

// Error makes ErrorCode usable as an errors.Is target
func (e ErrorCode) Error() string {
	return e.String()
}

// Error is the error type returned by the Detector, it carries the ErrorCode,
// a human readable message and the underlying cause if any
type Error struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func newError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}

// Error returns the error message
func (e *Error) Error() string {

	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the ErrorCode of this error
func (e *Error) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && code == e.Code
}

// CodeOf returns the ErrorCode carried by err, or zero if err was not
// returned by this package
func CodeOf(err error) ErrorCode {

	var e *Error

	if errors.As(err, &e) {
		return e.Code
	}

	return 0
}
